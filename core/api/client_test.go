package api_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsalvador/gdsim/core/api"
)

func TestStartSimulation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/start_simulation", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"topic":"AI Regulations","num_agents":4,"rounds":2,"human_participant":true}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"simulation_id":"sim-1","agents":[{"name":"Agent 1","persona":"logical and fact-driven"}]}`)
	}))
	defer server.Close()

	client := api.NewClient(api.WithBaseURL(server.URL))
	simulation, err := client.StartSimulation(context.Background(), api.StartRequest{
		Topic:            "AI Regulations",
		NumAgents:        4,
		Rounds:           2,
		HumanParticipant: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "sim-1", simulation.ID)
	require.Len(t, simulation.Agents, 1)
	assert.Equal(t, "logical and fact-driven", simulation.Agents[0].Persona)
}

func TestStartSimulationNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := api.NewClient(api.WithBaseURL(server.URL))
	_, err := client.StartSimulation(context.Background(), api.StartRequest{Topic: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "backend overloaded")
}

func TestNextRoundReturnsStreamBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/next_round/sim-1", r.URL.Path)
		io.WriteString(w, "data: {\"type\":\"complete\",\"round\":1}\n")
	}))
	defer server.Close()

	client := api.NewClient(api.WithBaseURL(server.URL))
	body, err := client.NextRound(context.Background(), "sim-1")
	require.NoError(t, err)
	defer body.Close()

	raw, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "data: {\"type\":\"complete\",\"round\":1}\n", string(raw))
}

func TestNextRoundNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such simulation", http.StatusNotFound)
	}))
	defer server.Close()

	client := api.NewClient(api.WithBaseURL(server.URL))
	_, err := client.NextRound(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestSubmitAudioSendsMultipartClip(t *testing.T) {
	clip := []byte{0x52, 0x49, 0x46, 0x46, 0x00, 0x01}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/submit_human_input/sim-1", r.URL.Path)

		file, header, err := r.FormFile("audio")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "recording.wav", header.Filename)

		got, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, clip, got)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"success":true,"transcribed_text":"hello everyone"}`)
	}))
	defer server.Close()

	client := api.NewClient(api.WithBaseURL(server.URL))
	result, err := client.SubmitAudio(context.Background(), "sim-1", clip)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "hello everyone", result.TranscribedText)
}

func TestSubmitTextPassesTextParameter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/submit_human_input/sim-1", r.URL.Path)
		assert.Equal(t, "I disagree & here is why", r.URL.Query().Get("text"))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"success":true,"transcribed_text":"I disagree & here is why"}`)
	}))
	defer server.Close()

	client := api.NewClient(api.WithBaseURL(server.URL))
	result, err := client.SubmitText(context.Background(), "sim-1", "I disagree & here is why")
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestSubmissionFailureIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"success":false,"error":"empty audio"}`)
	}))
	defer server.Close()

	client := api.NewClient(api.WithBaseURL(server.URL))
	result, err := client.SubmitText(context.Background(), "sim-1", "")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "empty audio", result.Error)
}

func TestHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"vosk_model_loaded":true,"ffmpeg_available":false}`)
	}))
	defer server.Close()

	client := api.NewClient(api.WithBaseURL(server.URL))
	health, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, health.VoskModelLoaded)
	assert.False(t, health.FfmpegAvailable)
	assert.False(t, health.SpeechCapable())
}

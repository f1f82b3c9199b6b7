package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jsalvador/gdsim/config"
	discussion "github.com/jsalvador/gdsim/core"
	"github.com/jsalvador/gdsim/core/api"
	"github.com/jsalvador/gdsim/core/audio"
	"github.com/jsalvador/gdsim/core/audio/miniaudio"
	"github.com/jsalvador/gdsim/core/audio/portaudio"
	"github.com/jsalvador/gdsim/core/playback"
	"github.com/jsalvador/gdsim/core/recording"
	"github.com/jsalvador/gdsim/internal/observability"
)

var program *tea.Program

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gdsim",
		Short:         "Join simulated group discussions between AI agents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(startCmd(), doctorCmd())
	return root
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the backend's speech capabilities",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			client := api.NewClient(api.WithBaseURL(cfg.BackendURL))
			health, err := client.Health(cmd.Context())
			if err != nil {
				return fmt.Errorf("backend unreachable at %s: %w", cfg.BackendURL, err)
			}

			mark := func(ok bool) string {
				if ok {
					return "ok"
				}
				return "MISSING"
			}
			fmt.Printf("backend:           %s\n", cfg.BackendURL)
			fmt.Printf("vosk speech model: %s\n", mark(health.VoskModelLoaded))
			fmt.Printf("ffmpeg:            %s\n", mark(health.FfmpegAvailable))
			if health.SpeechCapable() {
				fmt.Println("\nVoice input is available.")
			} else {
				fmt.Println("\nVoice input is disabled; human turns fall back to typed replies.")
			}
			return nil
		},
	}
}

func startCmd() *cobra.Command {
	var (
		topic        string
		numAgents    int
		rounds       int
		noHuman      bool
		backendURL   string
		audioBackend string
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a discussion and join it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if topic != "" {
				cfg.Topic = topic
			}
			if cfg.Topic == "" {
				return fmt.Errorf("no topic given; pass --topic or set one in the config file")
			}
			if numAgents > 0 {
				cfg.NumAgents = numAgents
			}
			if rounds > 0 {
				cfg.Rounds = rounds
			}
			if backendURL != "" {
				cfg.BackendURL = backendURL
			}
			if audioBackend != "" {
				cfg.AudioBackend = audioBackend
			}
			if noHuman {
				cfg.HumanName = ""
			}

			return runDiscussion(cmd, cfg)
		},
	}

	cmd.Flags().StringVarP(&topic, "topic", "t", "", "discussion topic")
	cmd.Flags().IntVar(&numAgents, "agents", 0, "number of AI agents")
	cmd.Flags().IntVar(&rounds, "rounds", 0, "number of rounds to run")
	cmd.Flags().BoolVar(&noHuman, "no-human", false, "run agents only, without a human participant")
	cmd.Flags().StringVar(&backendURL, "backend", "", "backend base URL")
	cmd.Flags().StringVar(&audioBackend, "audio", "", "audio backend: miniaudio, portaudio or none")
	return cmd
}

// captureDevice is what the recording session needs plus the encoding
// metadata used to wrap finalized clips as WAV.
type captureDevice interface {
	recording.Device
	EncodingInfo() audio.EncodingInfo
}

func runDiscussion(cmd *cobra.Command, cfg *config.Config) error {
	ctx := cmd.Context()
	logger := observability.Logger()
	client := api.NewClient(api.WithBaseURL(cfg.BackendURL))

	// Voice input needs the backend's speech stack and a local capture
	// device; anything missing degrades to typed replies.
	voiceCapable := false
	if health, err := client.Health(ctx); err != nil {
		logger.Warn("health check failed, voice input disabled", "error", err)
	} else {
		voiceCapable = health.SpeechCapable()
	}

	var device captureDevice
	var sink playback.Sink

	switch cfg.AudioBackend {
	case "miniaudio":
		device = miniaudio.NewCaptureDevice()
		if s, err := miniaudio.NewPlaybackSink(); err != nil {
			logger.Warn("playback unavailable", "error", err)
		} else {
			sink = s
			defer s.Close()
		}
	case "portaudio":
		device = portaudio.NewCaptureDevice()
		if s, err := portaudio.NewPlaybackSink(); err != nil {
			logger.Warn("playback unavailable", "error", err)
		} else {
			sink = s
			defer s.Close()
		}
	case "none":
	default:
		return fmt.Errorf("unknown audio backend %q", cfg.AudioBackend)
	}

	simulation, err := client.StartSimulation(ctx, api.StartRequest{
		Topic:            cfg.Topic,
		NumAgents:        cfg.NumAgents,
		Rounds:           cfg.Rounds,
		HumanParticipant: cfg.HumanName != "",
	})
	if err != nil {
		return fmt.Errorf("starting simulation: %w", err)
	}

	options := []discussion.Option{
		discussion.WithPlayer(playback.NewSequencer(sink, playback.WithLogger(logger))),
		discussion.WithLogger(logger),
		discussion.WithCallbacks(discussion.Callbacks{
			OnParticipantsChanged: func(participants []discussion.Participant) {
				program.Send(participantsMsg(participants))
			},
			OnMessagesChanged: func(messages []discussion.Message) {
				program.Send(messagesMsg(messages))
			},
			OnHumanTurn: func() {
				program.Send(humanTurnMsg{})
			},
			OnHumanTurnClosed: func() {
				program.Send(humanTurnClosedMsg{})
			},
			OnRoundComplete: func(round int) {
				program.Send(roundCompleteMsg(round))
			},
		}),
	}
	if cfg.HumanName != "" {
		options = append(options, discussion.WithHumanParticipant(cfg.HumanName))
	}

	orchestrator, err := discussion.NewOrchestrator(client, simulation, cfg.Topic, options...)
	if err != nil {
		return err
	}

	var recorder *recording.Session
	var encoding audio.EncodingInfo
	if voiceCapable && device != nil {
		encoding = device.EncodingInfo()
		recorder = recording.NewSession(device,
			recording.WithMinClipBytes(cfg.MinClipBytes),
			recording.WithLogger(logger),
			recording.WithElapsedCallback(func(seconds int) {
				program.Send(elapsedMsg(seconds))
			}),
		)
	}

	program = tea.NewProgram(
		newModel(orchestrator, recorder, encoding, cfg.Topic),
		tea.WithAltScreen(),
	)

	go func() {
		if err := orchestrator.Run(ctx, cfg.Rounds); err != nil {
			logger.Error("discussion aborted", "error", err)
			program.Send(discussionFailedMsg{err: err})
			return
		}
		program.Send(discussionDoneMsg{})
	}()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running UI: %w", err)
	}
	return nil
}

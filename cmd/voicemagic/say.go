package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ekisa-team/voicemagic/internal/artifact"
	"github.com/ekisa-team/voicemagic/internal/env"
	"github.com/ekisa-team/voicemagic/internal/service"
	"github.com/ekisa-team/voicemagic/internal/xfs"
)

func newSayCommand(opts *globalOptions) *cobra.Command {
	var (
		req service.SynthesisRequest
		out string
	)

	cmd := &cobra.Command{
		Use:   "say [text...]",
		Short: "Synthesize text into an MP3 file",
		Long:  "Synthesize text into an MP3 file. Text is read from the arguments, or from stdin when none are given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(opts)
			if err != nil {
				return err
			}

			setupLogger(env.FromEnv(), cfg.Logging)

			req.Text, err = readText(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			stored, err := a.tts.Synthesize(cmd.Context(), req)
			if err != nil {
				return err
			}

			_, data, err := a.tts.Open(stored.ID)
			if err != nil {
				return err
			}

			if err := xfs.WriteFileAtomic(out, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}

			slog.Info("Audio written", "file", out, "voice", stored.VoiceID, "bytes", len(data))
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&req.Voice, "voice", "v", "", "Voice name or provider voice ID (configured default when empty)")
	cmd.Flags().StringVar(&req.Rate, "rate", "", "Speaking rate, e.g. +10%")
	cmd.Flags().StringVar(&req.Volume, "volume", "", "Volume, e.g. -5%")
	cmd.Flags().StringVar(&req.Pitch, "pitch", "", "Pitch, e.g. +2Hz")
	cmd.Flags().StringVarP(&out, "output", "o", artifact.DownloadName, "Output file")

	return cmd
}

func readText(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(b), nil
}

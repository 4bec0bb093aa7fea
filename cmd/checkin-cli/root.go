package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/nikhilnt1234/Digital-Twin-sub001/common/logger"
	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/client"
	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type cliFlags struct {
	server     string
	session    string
	checkInID  string
	transcript string
	file       string
	prior      string
	bp         string
	hr         string
	spo2       string
	temp       string
	weight     string
	conditions []string
	followups  []string
	timeout    time.Duration
	verbose    bool
}

func newRootCmd() *cobra.Command {
	var flags cliFlags

	cmd := &cobra.Command{
		Use:   "checkin-cli",
		Short: "Submit a daily check-in for analysis",
		Long: `Submit a check-in transcript with optional vitals and follow-up answers to
digital-twin-api (POST /api/clinical/analyze) and print the care summary JSON.

The transcript is read from --transcript, --file, or stdin when --file is "-".`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheckIn(cmd.Context(), cmd.OutOrStdout(), cmd.InOrStdin(), flags)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.server, "server", envOr("DIGITAL_TWIN_URL", "http://localhost:8080"), "digital-twin-api base URL (default: $DIGITAL_TWIN_URL)")
	f.StringVarP(&flags.session, "session", "s", "", "Session ID (enables history and prior-summary lookup)")
	f.StringVar(&flags.checkInID, "id", "", "Check-in ID (generated by the server when empty)")
	f.StringVarP(&flags.transcript, "transcript", "t", "", "Transcript text")
	f.StringVarP(&flags.file, "file", "f", "", "Read transcript from file (\"-\" for stdin)")
	f.StringVar(&flags.prior, "prior", "", "Prior day summary")
	f.StringVar(&flags.bp, "bp", "", "Blood pressure, e.g. 128/82")
	f.StringVar(&flags.hr, "hr", "", "Heart rate")
	f.StringVar(&flags.spo2, "spo2", "", "SpO2")
	f.StringVar(&flags.temp, "temp", "", "Temperature")
	f.StringVar(&flags.weight, "weight", "", "Weight")
	f.StringSliceVar(&flags.conditions, "condition", nil, "Known condition (repeatable)")
	f.StringArrayVar(&flags.followups, "followup", nil, "Follow-up answer as key=value (repeatable)")
	f.DurationVar(&flags.timeout, "timeout", 30*time.Second, "Request timeout")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "Debug logging")

	cmd.MarkFlagsMutuallyExclusive("transcript", "file")
	return cmd
}

func runCheckIn(ctx context.Context, out io.Writer, stdin io.Reader, flags cliFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := buildRequest(flags, stdin)
	if err != nil {
		return err
	}

	level := "warn"
	if flags.verbose {
		level = "debug"
	}
	log, err := logger.NewLogger(level, "console", "checkin-cli")
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(ctx, flags.timeout)
	defer cancel()

	c := client.NewAnalyzeClient(flags.server, flags.timeout, log)
	summary, err := c.Analyze(ctx, req)
	if err != nil {
		log.Debug("Analyze failed", zap.Error(err))
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

func buildRequest(flags cliFlags, stdin io.Reader) (models.AnalyzeRequest, error) {
	transcript := flags.transcript
	switch flags.file {
	case "":
	case "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return models.AnalyzeRequest{}, fmt.Errorf("failed to read stdin: %w", err)
		}
		transcript = string(b)
	default:
		b, err := os.ReadFile(flags.file)
		if err != nil {
			return models.AnalyzeRequest{}, fmt.Errorf("failed to read transcript file: %w", err)
		}
		transcript = string(b)
	}

	followups, err := parseFollowUps(flags.followups)
	if err != nil {
		return models.AnalyzeRequest{}, err
	}

	payload := models.CheckInPayload{
		ID:              flags.checkInID,
		Transcript:      strings.TrimSpace(transcript),
		PriorDaySummary: flags.prior,
		Vitals: models.ClinicalVitals{
			BP:     flags.bp,
			HR:     flags.hr,
			SpO2:   flags.spo2,
			Temp:   flags.temp,
			Weight: flags.weight,
		},
	}
	if len(flags.conditions) > 0 {
		payload.PatientProfile = &models.PatientProfile{Conditions: flags.conditions}
	}

	return models.AnalyzeRequest{
		SessionID:       flags.session,
		Payload:         payload,
		FollowUpAnswers: followups,
	}, nil
}

// parseFollowUps key=value 列表
func parseFollowUps(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --followup %q, expected key=value", p)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

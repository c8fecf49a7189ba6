package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/benvon/saveprompt/internal/compose"
	"github.com/benvon/saveprompt/internal/gate"
	"github.com/benvon/saveprompt/internal/metrics"
	"github.com/benvon/saveprompt/internal/models"
	"github.com/benvon/saveprompt/internal/prompt"
	"github.com/benvon/saveprompt/internal/terminal"
	"github.com/benvon/saveprompt/internal/uithread"
	"github.com/benvon/saveprompt/internal/validation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// showFlags are the raw command-line inputs of the show command
type showFlags struct {
	Provider      string   `validate:"required"`
	Types         []string `validate:"max=5,dive,data_category"`
	Mask          uint32
	Description   string
	NegativeStyle string        `validate:"negative_style"`
	Timeout       time.Duration `validate:"gte=0"`
	MetricsAddr   string
	Debug         bool
}

// request converts validated flags into a prompt request
func (f *showFlags) request() (models.PromptRequest, error) {
	if err := validation.Validate.Struct(f); err != nil {
		return models.PromptRequest{}, fmt.Errorf("invalid flags: %w", err)
	}

	categories := make([]models.DataCategory, 0, len(f.Types))
	for _, t := range f.Types {
		c, err := models.ParseCategory(t)
		if err != nil {
			return models.PromptRequest{}, err
		}
		categories = append(categories, c)
	}
	for _, c := range models.SelectionFromMask(f.Mask).Ordered() {
		categories = append(categories, c)
	}

	style, err := models.ParseNegativeStyle(f.NegativeStyle)
	if err != nil {
		return models.PromptRequest{}, err
	}

	req := models.PromptRequest{
		ProviderLabel: validation.SanitizeText(f.Provider),
		Categories:    models.NewSelection(categories...),
		NegativeStyle: style,
		// The CLI has no flow to resume; report the decline as the target.
		NegativeTarget: "decline",
	}
	if f.Description != "" {
		desc := f.Description
		req.Description = &desc
	}
	return req, validation.ValidateRequest(req)
}

// NewShowCmd creates the show command
func NewShowCmd() *cobra.Command {
	flags := &showFlags{}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a save prompt and print the decision",
		Long: "Show a save prompt on the terminal. Answer y to save, n to decline or x to close.\n" +
			"The decision (save, cancel or destroyed) is printed on the last line.",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd.Context(), flags.Debug)
			if err != nil {
				return err
			}
			defer e.close()

			if !cmd.Flags().Changed("timeout") {
				flags.Timeout = e.cfg.AutoDismiss
			}
			if !cmd.Flags().Changed("metrics-addr") {
				flags.MetricsAddr = e.cfg.MetricsAddr
			}

			req, err := flags.request()
			if err != nil {
				return err
			}

			decision, err := runShow(cmd.Context(), e, req, flags, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), decision.Kind)
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.Provider, "provider", "p", "", "Provider label shown in the title (required)")
	cmd.Flags().StringSliceVarP(&flags.Types, "types", "t", nil, "Data categories: password, address, credit-card, username, email-address")
	cmd.Flags().Uint32Var(&flags.Mask, "mask", 0, "Data categories as a save-type bitmask (combined with --types)")
	cmd.Flags().StringVarP(&flags.Description, "description", "d", "", "Subtitle text")
	cmd.Flags().StringVar(&flags.NegativeStyle, "negative-style", "neutral", "Decline button style: neutral or reject")
	cmd.Flags().DurationVar(&flags.Timeout, "timeout", 0, "Close the prompt without a decision after this long (0 = never)")
	cmd.Flags().StringVar(&flags.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while the prompt is open")
	cmd.Flags().BoolVar(&flags.Debug, "debug", false, "Enable debug logging")
	_ = cmd.MarkFlagRequired("provider")

	return cmd
}

func runShow(ctx context.Context, e *env, req models.PromptRequest, flags *showFlags, in io.Reader, out io.Writer) (models.Decision, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if flags.MetricsAddr != "" {
		e.serveMetrics(flags.MetricsAddr, reg)
	}

	loop := uithread.NewLoop(e.log)
	defer loop.Close()

	decided := make(chan models.Decision, 1)
	listener := gate.ListenerFuncs{
		Save:    func() { decided <- models.SaveDecision() },
		Cancel:  func(target models.CancelTarget) { decided <- models.CancelDecision(target) },
		Destroy: func() { decided <- models.DestroyedDecision() },
	}

	surface := terminal.NewSurface(in, out, terminal.WithStrings(e.catalog))
	var p *prompt.Prompt
	var createErr error
	if err := loop.Invoke(func() {
		p, createErr = prompt.CreatePrompt(req.ProviderLabel, req, listener, surface,
			prompt.WithContext(ctx),
			prompt.WithLogger(e.log),
			prompt.WithMetrics(m),
			prompt.WithScheduler(loop),
			prompt.WithComposer(compose.New(e.catalog)),
			prompt.WithAutoDismiss(flags.Timeout),
		)
	}); err != nil {
		return models.Decision{}, err
	}
	if createErr != nil {
		return models.Decision{}, createErr
	}

	go func() {
		a, err := surface.Await(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			// Input ended without an answer: treat it like closing the window.
			e.log.Debug("No answer read", zap.Error(err))
			a = prompt.AffordanceClose
		}
		if err := loop.Post(p.ID(), func() { surface.Fire(a) }); err != nil {
			e.log.Debug("Answer arrived after shutdown", zap.Error(err))
		}
	}()

	var decision models.Decision
	select {
	case decision = <-decided:
	case <-ctx.Done():
	}

	// An answer already tore the prompt down; only a cancelled run is left open.
	var destroyErr error
	if err := loop.Invoke(func() {
		if p.State() == prompt.StateActive {
			destroyErr = p.Destroy()
		}
	}); err != nil {
		return models.Decision{}, err
	}
	if destroyErr != nil {
		return models.Decision{}, destroyErr
	}

	if decision.Kind == "" {
		// Cancelled from outside; Destroy delivered the destroyed decision.
		decision = <-decided
	}
	return decision, nil
}

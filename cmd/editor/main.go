package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	deep "github.com/brunoga/deep/v5"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"resumeBuilder/internal/config"
	"resumeBuilder/internal/editor"
	"resumeBuilder/internal/metrics"
	"resumeBuilder/internal/remote"
	"resumeBuilder/internal/resume"
)

const previewWidth = 60

var (
	v       = viper.New()
	cfg     *config.EditorConfig
	logger  *slog.Logger
	rootCmd = &cobra.Command{
		Use:           "editor",
		Short:         "Resume editor client",
		Long:          "Loads a resume from the resume service, prints it, or replays scripted edits through an editor session with undo/redo.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if v.GetBool("verbose") {
				level = slog.LevelDebug
			}
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			loaded, err := config.LoadEditor(v)
			if err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
	}
)

func main() {
	if err := config.SetEditorDefaults(v); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	addPersistentFlags()
	rootCmd.AddCommand(showCmd(), replayCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func addPersistentFlags() {
	flags := rootCmd.PersistentFlags()
	flags.String("api", "", "resume service base url (EDITOR_API_BASE_URL)")
	flags.String("token", "", "access token (EDITOR_TOKEN)")
	flags.String("email", "", "login email when no token is given (EDITOR_EMAIL)")
	flags.String("password", "", "login password (EDITOR_PASSWORD)")
	flags.Duration("debounce", 0, "history debounce window (EDITOR_DEBOUNCE_DELAY)")
	flags.BoolP("verbose", "v", false, "debug logging")
	_ = v.BindPFlag("api_base_url", flags.Lookup("api"))
	_ = v.BindPFlag("token", flags.Lookup("token"))
	_ = v.BindPFlag("email", flags.Lookup("email"))
	_ = v.BindPFlag("password", flags.Lookup("password"))
	_ = v.BindPFlag("debounce_delay", flags.Lookup("debounce"))
	_ = v.BindPFlag("verbose", flags.Lookup("verbose"))
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <resumeID>",
		Short: "Print a resume's sections and items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resumeID, err := parseResumeID(args[0])
			if err != nil {
				return err
			}
			client, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			r, err := client.FetchResume(cmd.Context(), resumeID)
			if err != nil {
				return err
			}
			renderResume(os.Stdout, r)
			return nil
		},
	}
}

func replayCmd() *cobra.Command {
	var showMetrics bool
	cmd := &cobra.Command{
		Use:   "replay <resumeID> <script.yaml>",
		Short: "Replay scripted edits through an editor session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resumeID, err := parseResumeID(args[0])
			if err != nil {
				return err
			}
			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("open script: %w", err)
			}
			script, err := LoadScript(f)
			_ = f.Close()
			if err != nil {
				return err
			}

			client, err := connect(cmd.Context())
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			session := editor.NewSession(client, editor.Options{
				HistoryLimit:   cfg.HistoryLimit,
				DebounceDelay:  cfg.DebounceDelay,
				RequestTimeout: cfg.RequestTimeout,
				Logger:         logger,
				Observer:       metrics.NewEditorObserver(reg),
			})
			defer session.Close()

			if err := session.Load(cmd.Context(), resumeID); err != nil {
				return err
			}
			runErr := newReplayer(session).Run(cmd.Context(), script)
			session.Flush()
			session.Wait()

			st := session.State()
			renderState(os.Stdout, st)
			renderResume(os.Stdout, st.Document.Resume)
			if showMetrics {
				if err := renderMetrics(os.Stdout, reg); err != nil {
					return err
				}
			}
			if runErr != nil {
				return runErr
			}
			if st.Save.Status == editor.StatusError {
				return fmt.Errorf("last remote write failed: %w", st.Save.LastError)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print remote write metrics")
	return cmd
}

// connect 创建远端客户端；没有 token 时用邮箱密码登录。
func connect(ctx context.Context) (*remote.Client, error) {
	client := remote.New(cfg.APIBaseURL, cfg.Token, cfg.RequestTimeout)
	if cfg.Token != "" {
		return client, nil
	}
	if cfg.Email == "" || cfg.Password == "" {
		return nil, fmt.Errorf("either --token or --email/--password is required")
	}
	if err := client.Login(ctx, cfg.Email, cfg.Password); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	logger.Debug("logged in", slog.String("email", cfg.Email))
	return client, nil
}

func parseResumeID(s string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid resume id %q", s)
	}
	return uint(id), nil
}

func renderResume(w io.Writer, r resume.Resume) {
	fmt.Fprintf(w, "%s (id=%d, status=%s)\n", r.Title, r.ID, r.Status)
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Pos", "ID", "Kind", "Content", "Visible"})
	r = deep.Clone(r)
	r.SortSections()
	for _, sec := range r.Sections {
		tw.AppendRow(table.Row{sec.Position, sec.ID, sec.SectionType.Key, sec.Heading, sec.Visible})
		sec.SortItems()
		for _, it := range sec.Items {
			tw.AppendRow(table.Row{fmt.Sprintf("  %d", it.Position), it.ID, "item", preview(it.DataJSON), ""})
		}
	}
	tw.Render()
}

func renderState(w io.Writer, st editor.State) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Save", "Undo", "Redo", "Past", "Future", "Error"})
	errText := ""
	if st.Save.LastError != nil {
		errText = st.Save.LastError.Error()
	}
	tw.AppendRow(table.Row{st.Save.Status, st.CanUndo, st.CanRedo, st.PastDepth, st.FutureDepth, errText})
	tw.Render()
}

func renderMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Metric", "Op", "Value"})
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			op := ""
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "op" {
					op = lp.GetValue()
				}
			}
			switch {
			case m.GetCounter() != nil:
				tw.AppendRow(table.Row{mf.GetName(), op, m.GetCounter().GetValue()})
			case m.GetHistogram() != nil:
				tw.AppendRow(table.Row{mf.GetName() + "_count", op, m.GetHistogram().GetSampleCount()})
			}
		}
	}
	tw.Render()
	return nil
}

func preview(raw []byte) string {
	s := strings.Join(strings.Fields(string(raw)), " ")
	if len(s) > previewWidth {
		return s[:previewWidth-3] + "..."
	}
	return s
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/ayusman/wakeguard/internal/app"
	"github.com/ayusman/wakeguard/internal/capture"
	"github.com/ayusman/wakeguard/internal/config"
	"github.com/ayusman/wakeguard/internal/detector"
	"github.com/ayusman/wakeguard/internal/display"
	"github.com/ayusman/wakeguard/internal/feedback"
	"github.com/ayusman/wakeguard/internal/server"
	"github.com/ayusman/wakeguard/internal/store"
	"github.com/ayusman/wakeguard/internal/tray"
	"github.com/spf13/cobra"
)

var collectOpts struct {
	Camera     int
	NoFallback bool
	NoMirror   bool
	Model      string
	Script     string
	OutDir     string
	OutFile    string
	Listen     string
	Feedback   string
	Headless   bool
	Tray       bool
	Video      string
	WebDir     string
}

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run a collection session and save the dataset",
	Long: `Runs the staged protocol against the camera. Press Space in the preview
window to start or pause recording and q to finish. In headless mode press
Enter to toggle and type q to finish. The dataset is saved on exit, including
when interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyCollectFlags(cmd)
		if err := cfg.Validate(); err != nil {
			return err
		}
		return runCollect(cmd.Context())
	},
}

func init() {
	f := collectCmd.Flags()
	f.IntVar(&collectOpts.Camera, "camera", 0, "camera device id")
	f.BoolVar(&collectOpts.NoFallback, "no-fallback", false, "do not try the next camera id when the first fails")
	f.BoolVar(&collectOpts.NoMirror, "no-mirror", false, "do not flip frames horizontally")
	f.StringVar(&collectOpts.Model, "model", "", "face_landmarker.task model path")
	f.StringVar(&collectOpts.Script, "script", "", "landmark service script path")
	f.StringVar(&collectOpts.OutDir, "out-dir", "", "output directory")
	f.StringVar(&collectOpts.OutFile, "out-file", "", "output CSV file name")
	f.StringVar(&protocolFile, "protocol", "", "JSON protocol file (default: built-in protocol)")
	f.StringVar(&collectOpts.Listen, "listen", "", "serve live status on this address, e.g. 127.0.0.1:8080")
	f.StringVar(&collectOpts.Feedback, "feedback", "", "feedback mode: auto, bell or none")
	f.BoolVar(&collectOpts.Headless, "headless", false, "no preview window; control from the terminal")
	f.BoolVar(&collectOpts.Tray, "tray", false, "control from the system tray instead of the preview window")
	f.StringVar(&collectOpts.Video, "video", "", "read frames from a video file instead of a camera")
	f.StringVar(&collectOpts.WebDir, "web-dir", "", "status page directory served with --listen (default: search web/)")
	rootCmd.AddCommand(collectCmd)
}

func applyCollectFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("camera") {
		cfg.CameraID = collectOpts.Camera
	}
	if f.Changed("no-fallback") {
		cfg.CameraFallback = !collectOpts.NoFallback
	}
	if f.Changed("no-mirror") {
		cfg.Mirror = !collectOpts.NoMirror
	}
	if f.Changed("model") {
		cfg.ModelPath = collectOpts.Model
	}
	if f.Changed("script") {
		cfg.ScriptPath = collectOpts.Script
	}
	if f.Changed("out-dir") {
		cfg.OutputDir = collectOpts.OutDir
	}
	if f.Changed("out-file") {
		cfg.OutputFile = collectOpts.OutFile
	}
	if f.Changed("listen") {
		cfg.ListenAddr = collectOpts.Listen
	}
	if f.Changed("web-dir") {
		cfg.WebDir = collectOpts.WebDir
	}
	if f.Changed("feedback") {
		cfg.Feedback = collectOpts.Feedback
	}
	if f.Changed("headless") {
		cfg.Headless = collectOpts.Headless
	}
	if f.Changed("tray") {
		cfg.Tray = collectOpts.Tray
	}
}

func runCollect(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p, err := loadProtocol()
	if err != nil {
		return err
	}

	detCfg := detector.DefaultConfig(cfg.ModelPath)
	detCfg.ScriptPath = cfg.ScriptPath
	det, err := detector.NewMediaPipeDetector(detCfg)
	if err != nil {
		return fmt.Errorf("landmark detector: %w", err)
	}

	cam, err := openCamera()
	if err != nil {
		det.Close()
		return err
	}

	var st *store.Store
	if cfg.DBPath != "" {
		st, err = openStore()
		if err != nil {
			log.WithError(err).Warn("Session archive unavailable")
		} else {
			defer st.Close()
		}
	}

	var (
		surfaces  display.Multi
		observers []app.Observer
		sinks     = feedbackSinks()
		control   *display.Channel
		tr        *tray.Tray
	)

	switch {
	case cfg.Tray:
		control = display.NewChannel(8)
		tr = tray.New(control)
		surfaces = append(surfaces, control)
		observers = append(observers, tr)
	case cfg.Headless:
		control = display.NewChannel(8)
		surfaces = append(surfaces, control)
		observers = append(observers, newStageProgress(os.Stderr))
		go func() {
			if err := display.ReadCommands(os.Stdin, control); err != nil {
				log.WithError(err).Warn("Terminal input closed")
			}
		}()
		fmt.Fprintln(os.Stderr, "Press Enter to start/pause recording, type q and Enter to finish.")
	default:
		surfaces = append(surfaces, display.NewWindow(display.WindowTitle))
	}

	var hub *server.Hub
	var preview *server.Preview
	if cfg.ListenAddr != "" {
		hub = server.NewHub(log)
		preview = server.NewPreview()
		sinks = append(sinks, hub)
		observers = append(observers, hub)
		surfaces = append(surfaces, preview)
	}

	collector, err := app.New(app.Config{
		Camera:     cam,
		Detector:   det,
		Surface:    surfaces,
		Protocol:   p,
		Store:      st,
		Sink:       sinks,
		Observers:  observers,
		Log:        log,
		OutputPath: cfg.OutputPath(),
		Mirror:     cfg.Mirror,
	})
	if err != nil {
		cam.Close()
		det.Close()
		return err
	}
	defer collector.Close()

	if cfg.ListenAddr != "" {
		webDir := cfg.WebDir
		if webDir == "" {
			webDir = findWebDir()
		}
		srv := server.New(server.Config{
			StaticDir: webDir,
			Store:     st,
			Status:    collector.Status,
			Hub:       hub,
			Preview:   preview,
			Log:       log,
		})
		url := "http://" + cfg.ListenAddr + "/"
		if webDir == "" {
			url += "api/status"
		} else {
			log.WithField("dir", webDir).Info("Serving status page")
		}
		if tr != nil {
			tr.OnOpen(func() { openBrowser(url) })
		}

		go func() {
			if err := srv.Run(ctx, cfg.ListenAddr); err != nil {
				log.WithError(err).Error("Status server stopped")
			}
		}()
	}

	var summary app.Summary
	if tr != nil {
		errCh := make(chan error, 1)
		go func() {
			var runErr error
			summary, runErr = collector.Run(ctx)
			tr.Quit()
			errCh <- runErr
		}()
		// The tray owns the main thread until the collector has finished.
		tr.Run()
		err = <-errCh
	} else {
		summary, err = collector.Run(ctx)
	}

	for _, s := range sinks {
		if cs, ok := s.(*feedback.CommandSink); ok {
			cs.Wait()
		}
	}

	if err != nil && collector.Dataset().Len() > 0 {
		summary, err = recoverExport(collector, err)
	}
	if err != nil {
		return err
	}
	printSummary(summary)
	return nil
}

// recoverExport retries a failed export in the fallback directory and tells
// the operator how to recover the session when that fails too.
func recoverExport(c *app.Collector, exportErr error) (app.Summary, error) {
	path := filepath.Join(fallbackDir(), c.ID()+".csv")
	log.WithError(exportErr).WithField("path", path).Warn("Export failed, saving to fallback path")

	summary, err := c.FinishTo(path)
	if err == nil {
		return summary, nil
	}
	if c.Archived() {
		fmt.Fprintf(os.Stderr, "Session %s is archived. Recover it with: wakeguard export %s --out <path>\n", c.ID(), c.ID())
	}
	return summary, errors.Join(exportErr, err)
}

// findWebDir searches for the status page in web, ../web and ~/.wakeguard/web.
// It returns the first existing directory or an empty string.
func findWebDir() string {
	candidates := []string{"web", filepath.Join("..", "web")}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".wakeguard", "web"))
	}

	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

// fallbackDir sits next to the session archive, or in the temp dir without one.
func fallbackDir() string {
	if cfg.DBPath != "" {
		return filepath.Join(filepath.Dir(cfg.DBPath), "exports")
	}
	return os.TempDir()
}

// openCamera opens the video file or the configured camera, falling back to
// the next device id when allowed.
func openCamera() (capture.Camera, error) {
	if collectOpts.Video != "" {
		cam := capture.NewVideoFile(collectOpts.Video)
		if err := cam.Open(); err != nil {
			return nil, fmt.Errorf("open video %s: %w", collectOpts.Video, err)
		}
		return cam, nil
	}

	ids := []int{cfg.CameraID}
	if cfg.CameraFallback {
		ids = append(ids, cfg.CameraID+1)
	}
	cam, id, err := capture.OpenFirst(ids, capture.NewCamera)
	if err != nil {
		return nil, fmt.Errorf("open camera: %w", err)
	}
	log.WithField("camera", id).Info("Camera opened")
	return cam, nil
}

func feedbackSinks() feedback.Multi {
	switch cfg.Feedback {
	case config.FeedbackNone:
		return feedback.Multi{feedback.LogSink{Log: log}}
	case config.FeedbackBell:
		return feedback.Multi{feedback.NewBellSink(os.Stderr)}
	default:
		if sounds, ok := feedback.SystemSounds(); ok {
			return feedback.Multi{feedback.NewCommandSink(sounds, log)}
		}
		return feedback.Multi{feedback.NewBellSink(os.Stderr)}
	}
}

func printSummary(s app.Summary) {
	if s.Rows == 0 {
		fmt.Println("No samples collected, nothing saved.")
		return
	}
	fmt.Printf("Saved %d rows to: %s\n", s.Rows, s.Path)
	for _, label := range []int{0, 1} {
		fmt.Printf("  %-7s %d\n", labelName(label)+":", s.Counts[label])
	}
	if !s.Completed {
		fmt.Printf("Session ended after %d completed stage(s).\n", s.StagesDone)
	}
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.WithError(err).Warn("Failed to open browser")
	}
}

package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"go.bug.st/serial"

	"race-replay/replay"
)

// Version information - populated at build time via ldflags
var (
	Version   = "dev"     // Will be set to git tag if available, otherwise "dev"
	Commit    = "unknown" // Will be set to git commit hash
	BuildDate = "unknown" // Will be set to build timestamp
)

// timingFeed writes live timing lines to a writer (stdout or a serial
// display), throttled to the configured emit rate.
type timingFeed struct {
	writer   io.Writer
	rate     time.Duration
	lastEmit time.Time
	done     chan struct{}
}

func newTimingFeed(writer io.Writer, rate time.Duration) *timingFeed {
	return &timingFeed{
		writer: writer,
		rate:   rate,
		done:   make(chan struct{}),
	}
}

func (f *timingFeed) UpdateFrame(stats replay.FrameStats) {
	now := time.Now()
	if now.Sub(f.lastEmit) < f.rate {
		return
	}
	f.lastEmit = now

	line := fmt.Sprintf("[%s] %5.1f%% %4.2fx", stats.Clock, stats.Progress, stats.Speed)
	for i, standing := range stats.Standings {
		if i >= 3 {
			break
		}
		line += fmt.Sprintf("  P%d %s L%d", standing.Rank, standing.Code, standing.Lap)
	}
	fmt.Fprintf(f.writer, "%s\r\n", line)
}

func (f *timingFeed) PlaybackFinished(stats replay.FrameStats) {
	fmt.Fprintf(f.writer, "FINISH [%s]\r\n", stats.Clock)
	for _, standing := range stats.Standings {
		fmt.Fprintf(f.writer, "  P%d %s L%d\r\n", standing.Rank, standing.Code, standing.Lap)
	}
	close(f.done)
}

func main() {
	config := replay.DefaultConfig()
	var (
		showVersion bool
		datasetFile string
		synthetic   bool
		entities    int
		laps        int
		feedRate    time.Duration
		serialPort  string
		baudRate    int
		duration    time.Duration
	)

	// Define command line flags
	flag.BoolVar(&showVersion, "version", false, "Show version information and exit")
	flag.StringVar(&datasetFile, "dataset", "", "Session dataset JSON file to replay")
	flag.BoolVar(&synthetic, "synthetic", false, "Generate a synthetic demo session instead of loading a dataset")
	flag.IntVar(&entities, "entities", 6, "Number of entities in a synthetic session")
	flag.IntVar(&laps, "laps", 5, "Number of laps in a synthetic session")
	flag.Float64Var(&config.Speed, "speed", 1.0, "Playback speed multiplier (0.25-8.0, 1.0=real-time)")
	flag.BoolVar(&config.Loop, "loop", false, "Loop playback continuously (default: stop after one pass)")
	flag.IntVar(&config.TrailLength, "trail", config.TrailLength, "Trail buffer length per entity")
	flag.Float64Var(&config.ViewportWidth, "width", config.ViewportWidth, "Viewport width in pixels")
	flag.Float64Var(&config.ViewportHeight, "height", config.ViewportHeight, "Viewport height in pixels")
	flag.DurationVar(&config.FrameRate, "frame-rate", config.FrameRate, "Interval between frames")
	flag.StringVar(&config.ResultsURL, "results-url", "", "Base URL for the final-results service (empty = live standings only)")
	flag.BoolVar(&config.Quiet, "quiet", false, "Suppress info messages (only output timing lines)")
	flag.DurationVar(&feedRate, "rate", time.Second, "Timing feed output rate")
	flag.StringVar(&serialPort, "serial", "", "Serial port for the timing feed (e.g., /dev/ttyUSB0, COM1)")
	flag.IntVar(&baudRate, "baud", 9600, "Serial port baud rate")
	flag.DurationVar(&duration, "duration", 0, "How long to run playback (e.g., 30s, 5m). Default is until the end of the session")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nRace Telemetry Replay\n")
		fmt.Fprintf(os.Stderr, "Replays a recorded multi-entity telemetry session with speed control and live standings.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	// Handle version flag
	if showVersion {
		if Version != "dev" {
			fmt.Printf("v%s\n", Version)
		} else {
			fmt.Printf("%s\n", Commit)
		}
		os.Exit(0)
	}

	if datasetFile == "" && !synthetic {
		log.Fatal("Either -dataset or -synthetic must be given")
	}
	if baudRate <= 0 {
		log.Fatal("Baud rate must be positive")
	}
	if feedRate <= 0 {
		log.Fatal("Feed rate must be positive")
	}

	// Setup feed writer (serial port or stdout)
	var feedWriter io.Writer = os.Stdout
	if serialPort != "" {
		mode := &serial.Mode{
			BaudRate: baudRate,
			Parity:   serial.NoParity,
			DataBits: 8,
			StopBits: serial.OneStopBit,
		}

		port, err := serial.Open(serialPort, mode)
		if err != nil {
			log.Fatalf("Failed to open serial port %s: %v", serialPort, err)
		}
		defer port.Close()
		feedWriter = port

		if !config.Quiet {
			fmt.Fprintf(os.Stderr, "Opened serial port: %s at %d baud\n", serialPort, baudRate)
		}
	}

	// Load the session
	var store *replay.Store
	var err error
	if synthetic {
		opts := replay.DefaultSyntheticOptions()
		opts.Entities = entities
		opts.Laps = laps
		store, err = replay.GenerateSyntheticStore(opts)
	} else {
		store, err = replay.ReadDatasetFile(datasetFile)
	}
	if err != nil {
		log.Fatalf("Failed to load session: %v", err)
	}

	engine, err := replay.NewEngine(config)
	if err != nil {
		log.Fatalf("Failed to create playback engine: %v", err)
	}
	if err := engine.LoadDataset(store); err != nil {
		log.Fatalf("Failed to install dataset: %v", err)
	}

	feed := newTimingFeed(feedWriter, feedRate)
	engine.SetPresenter(feed)

	// Log to stderr so it doesn't interfere with the timing feed
	if !config.Quiet {
		timeRange := store.TimeRange()
		fmt.Fprintf(os.Stderr, "Session: %s (%s)\n", store.SessionName, store.SessionKey)
		fmt.Fprintf(os.Stderr, "Entities: %d\n", len(store.Entities()))
		fmt.Fprintf(os.Stderr, "Session length: %s\n", time.Duration(timeRange.Duration()*float64(time.Second)).Round(time.Second))
		fmt.Fprintf(os.Stderr, "Playback speed: %.2fx\n", config.Speed)
		if serialPort != "" {
			fmt.Fprintf(os.Stderr, "Timing feed: %s (%d baud)\n", serialPort, baudRate)
		} else {
			fmt.Fprintf(os.Stderr, "Timing feed: stdout\n")
		}
		fmt.Fprintf(os.Stderr, "\nPress Ctrl+C to stop\n\n")
	}

	if config.ResultsURL != "" {
		engine.LoadFinalResults(config.ResultsURL)
	}

	if err := engine.Start(); err != nil {
		log.Fatalf("Failed to start playback: %v", err)
	}
	if err := engine.Play(); err != nil {
		log.Fatalf("Failed to begin playback: %v", err)
	}

	if duration > 0 {
		select {
		case <-feed.done:
		case <-time.After(duration):
			engine.Stop()
		}
		return
	}
	<-feed.done
}

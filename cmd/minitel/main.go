// Command minitel drives a terminal plugged into a serial port. It finds the rate the
// terminal runs at, switches it to the configured one and then either echoes the
// console to the terminal's screen or runs a host program that the terminal talks to.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/term"
	"github.com/creack/pty"
	"golang.org/x/sync/errgroup"

	"github.com/moodclient/videotex"
	"github.com/moodclient/videotex/serial"
	"github.com/moodclient/videotex/utils"
)

type console struct {
	lock   sync.Mutex
	out    io.Writer
	raw    bool
	styled bool

	keyStyle  lipgloss.Style
	lineStyle lipgloss.Style
	errStyle  lipgloss.Style
}

func newConsole(out io.Writer, profile colorprofile.Profile) *console {
	c := &console{out: out}
	c.styled = profile == colorprofile.ANSI || profile == colorprofile.ANSI256 || profile == colorprofile.TrueColor

	c.keyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	c.lineStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	c.errStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	return c
}

func (c *console) println(style lipgloss.Style, text string) {
	if c.styled {
		text = style.Render(text)
	}

	newline := "\n"
	if c.raw {
		newline = "\r\n"
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	fmt.Fprint(c.out, text+newline)
}

func (c *console) key(key videotex.KeyEvent) {
	c.println(c.keyStyle, fmt.Sprintf("key %s", key))
}

func (c *console) line(line string) {
	c.println(c.lineStyle, fmt.Sprintf("> %s", line))
}

func (c *console) encounteredError(_ *videotex.Terminal, err error) {
	c.println(c.errStyle, err.Error())
}

// interruptReader ends the console input at Ctrl+C or Ctrl+D, which raw mode
// delivers as plain bytes
type interruptReader struct {
	reader io.Reader
}

func (r interruptReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if index := bytes.IndexAny(p[:n], "\x03\x04"); index >= 0 {
		return index, io.EOF
	}

	return n, err
}

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	port := flag.String("port", "", "serial port the terminal is plugged into")
	baud := flag.Int("baud", 0, "rate to run the session at")
	logLevel := flag.String("log-level", "", "debug, info, warn or error")
	flag.Parse()

	config, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatalln(err)
	}

	if *port != "" {
		config.Port = *port
	}
	if *baud != 0 {
		config.Baud = *baud
	}
	if *logLevel != "" {
		config.LogLevel = *logLevel
	}
	if flag.NArg() > 0 {
		config.Exec = flag.Args()
	}

	err = config.Validate()
	if err != nil {
		log.Fatalln(err)
	}

	level, _ := config.Level()

	lipgloss.EnableLegacyWindowsANSI(os.Stdout)
	out := newConsole(os.Stdout, colorprofile.Detect(os.Stdout, os.Environ()))

	logStore := bytes.NewBuffer(nil)
	var logOut io.Writer = logStore
	if config.LogFile != "" {
		logFile, err := os.OpenFile(config.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			log.Fatalln(err)
		}
		defer logFile.Close()
		logOut = logFile
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	link, err := serial.Open(config.Port, videotex.Baud1200)
	if err != nil {
		log.Fatalln(err)
	}
	defer link.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	terminalConfig := config.TerminalConfig()
	terminalConfig.EventHooks.EncounteredError = []videotex.ErrorHandler{out.encounteredError}

	terminal, err := videotex.NewTerminal(link, terminalConfig)
	if err != nil {
		log.Fatalln(err)
	}

	_ = utils.NewDebugLog(terminal, logger, utils.DebugLogConfig{
		EncounteredErrorLevel: slog.LevelError,
		OutboundDataLevel:     slog.LevelDebug,
		TelegramLevel:         slog.LevelInfo,
		FailedTelegramLevel:   slog.LevelWarn,
		KeyReceivedLevel:      slog.LevelDebug,
	})
	modes := utils.NewModeTracker(terminal)

	err = startSession(terminal, config, logger)
	if err != nil {
		log.Fatalln(err)
	}

	logger.Info("Session ready", "baud", terminal.State().Baud,
		"scrolling", modes.IsScrolling(), "lowercase", modes.IsLowercase(),
		"extended_keyboard", modes.IsExtendedKeyboard())

	if len(config.Exec) > 0 {
		err = runHost(ctx, terminal, config, out)
	} else {
		err = runConsole(ctx, terminal, config, out)
	}

	if config.LogFile == "" {
		fmt.Print(logStore.String())
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalln(err)
	}
}

// startSession finds the terminal, moves it to the configured rate and sets it up
// for line entry
func startSession(terminal *videotex.Terminal, config Config, logger *slog.Logger) error {
	found, err := terminal.SearchSpeed(config.SearchRounds)
	if err != nil {
		return err
	}
	if found == videotex.BaudUnknown {
		return fmt.Errorf("no terminal answered on %s", config.Port)
	}

	if found != config.Baud {
		confirmed, err := terminal.ChangeSpeed(config.Baud)
		if err != nil {
			return err
		}
		if confirmed != config.Baud {
			return fmt.Errorf("terminal did not confirm %d baud", config.Baud)
		}
	}

	id, ok, err := terminal.IdentifyDevice()
	if err != nil {
		return err
	}
	if ok {
		logger.Info("Identified", "maker", id.MakerName(), "model", id.ModelName(), "id", id.String())
	}

	if config.ExtendedKeyboard {
		_, err = terminal.ExtendedKeyboard()
		if err != nil {
			return err
		}
	}

	if config.Lowercase {
		_, err = terminal.SmallMode()
		if err != nil {
			return err
		}
	}

	// Typed keys are drawn by the line feed
	_, err = terminal.Route(false, videotex.KeyboardTx, videotex.ScreenRx)
	if err != nil {
		return err
	}

	screen := terminal.Screen()
	err = screen.NewScreen()
	if err != nil {
		return err
	}

	if config.Welcome != "" {
		err = screen.Println(config.Welcome)
		if err != nil {
			return err
		}
	}

	return screen.Cursor()
}

func lineFeedConfig(config Config) utils.LineFeedConfig {
	return utils.LineFeedConfig{
		MaxLength:         config.MaxLineLength,
		SuppressLocalEcho: !config.LocalEcho,
	}
}

// readOutput reads input on its own goroutine and passes what it reads over the
// returned channel, which is closed once input ends. Errors other than io.EOF go to
// failed.
func readOutput(ctx context.Context, input io.Reader, failed func(err error)) <-chan []byte {
	chunks := make(chan []byte)

	go func() {
		defer close(chunks)

		for {
			buf := make([]byte, 1024)
			n, err := input.Read(buf)
			if n > 0 {
				select {
				case chunks <- buf[:n]:
				case <-ctx.Done():
					return
				}
			}

			if err != nil {
				if !errors.Is(err, io.EOF) {
					failed(err)
				}
				return
			}
		}
	}()

	return chunks
}

// pollKeys reads keys until ctx is done, and writes chunks to feed between reads, so
// the terminal is only ever used from the calling goroutine. ConnexionFin ends the
// session, as does chunks being closed.
func pollKeys(ctx context.Context, terminal *videotex.Terminal, interval time.Duration, out *console, feed io.Writer, chunks <-chan []byte) error {
	if interval <= 0 {
		interval = time.Millisecond
	}

	for {
		key, err := terminal.Keyboard().ReadKey()
		if errors.Is(err, videotex.ErrParity) {
			out.encounteredError(terminal, err)
			continue
		} else if err != nil {
			return err
		}

		if key.Code == videotex.KeyConnexionFin {
			return context.Canceled
		}

		if !key.IsZero() {
			out.key(key)
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				return context.Canceled
			}

			_, err = feed.Write(chunk)
			if err != nil {
				return err
			}
		case <-time.After(interval):
		}
	}
}

// runConsole shows what is typed on the console on the terminal's screen, and lines
// typed on the terminal on the console
func runConsole(ctx context.Context, terminal *videotex.Terminal, config Config, out *console) error {
	stdin := os.Stdin

	var input io.Reader = stdin
	if term.IsTerminal(stdin.Fd()) {
		lipgloss.EnableLegacyWindowsANSI(stdin)

		state, err := term.MakeRaw(stdin.Fd())
		if err != nil {
			return err
		}
		defer func() {
			_ = term.Restore(stdin.Fd(), state)
		}()

		out.raw = true
		input = interruptReader{reader: stdin}
	}

	lineFeed := utils.NewLineFeed(func(terminal *videotex.Terminal, line string) {
		out.line(line)
		if config.LocalEcho {
			err := terminal.Screen().Newline()
			if err != nil {
				out.encounteredError(terminal, err)
			}
		}
	}, lineFeedConfig(config))
	terminal.Keyboard().Middleware().PushMiddleware(lineFeed)

	feed := utils.NewHostFeed(terminal, nil, utils.HostFeedConfig{ConvertNewlines: !out.raw})

	// Reads from stdin can't be interrupted, so the reader is left behind if the
	// session ends first
	chunks := readOutput(ctx, input, func(err error) {
		out.encounteredError(terminal, err)
	})

	return pollKeys(ctx, terminal, config.PollInterval, out, feed, chunks)
}

func eraseEcho(screen *videotex.Screen, line string) error {
	err := utils.StepLeft(screen, utf8.RuneCountInString(line))
	if err != nil {
		return err
	}

	return screen.ClearLineFromCursor()
}

// runHost runs the configured program on a pseudo terminal the size of the screen
func runHost(ctx context.Context, terminal *videotex.Terminal, config Config, out *console) error {
	cmd := exec.CommandContext(ctx, config.Exec[0], config.Exec[1:]...)
	cmd.Env = append(os.Environ(), "TERM=ansi", "COLUMNS=40", "LINES=24")

	host, err := pty.Start(cmd)
	if err != nil {
		return err
	}

	err = pty.Setsize(host, &pty.Winsize{Rows: 24, Cols: 40})
	if err != nil {
		_ = host.Close()
		return err
	}

	lineFeed := utils.NewLineFeed(func(terminal *videotex.Terminal, line string) {
		out.line(line)

		// The program's tty echoes the line, so the local echo is wiped first
		if config.LocalEcho {
			err := eraseEcho(terminal.Screen(), line)
			if err != nil {
				out.encounteredError(terminal, err)
			}
		}

		_, err := io.WriteString(host, line+"\n")
		if err != nil {
			out.encounteredError(terminal, err)
		}
	}, lineFeedConfig(config))
	terminal.Keyboard().Middleware().PushMiddleware(lineFeed)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		err := cmd.Wait()
		_ = host.Close()
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("%s: %w", config.Exec[0], err)
		}

		return context.Canceled
	})

	feed := utils.NewHostFeed(terminal, nil, utils.HostFeedConfig{})
	chunks := readOutput(groupCtx, host, func(err error) {
		// The pty reports an error once the program has exited and closed it
		if errors.Is(err, os.ErrClosed) || errors.Is(err, syscall.EIO) {
			return
		}
		out.encounteredError(terminal, err)
	})

	group.Go(func() error {
		err := pollKeys(groupCtx, terminal, config.PollInterval, out, feed, chunks)
		if errors.Is(err, context.Canceled) && ctx.Err() == nil {
			// ConnexionFin or the program exiting; stop the program if it still runs
			if cmd.Process != nil {
				_ = cmd.Process.Signal(syscall.SIGHUP)
			}
		}
		return err
	})

	return group.Wait()
}

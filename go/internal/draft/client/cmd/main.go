package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mcdev12/dynasty-draftsync/go/internal/draft/client"
	"github.com/mcdev12/dynasty-draftsync/go/internal/models"
)

// Settings are read from DRAFT_* environment variables
type Settings struct {
	URL             string        `envconfig:"URL" default:"ws://localhost:8081/ws/draft"`
	LeagueID        string        `envconfig:"LEAGUE_ID" required:"true"`
	Token           string        `envconfig:"TOKEN"`
	Observer        bool          `envconfig:"OBSERVER"`
	LowTime         time.Duration `envconfig:"LOW_TIME" default:"10s"`
	SnapshotTimeout time.Duration `envconfig:"SNAPSHOT_TIMEOUT" default:"10s"`
	TickInterval    time.Duration `envconfig:"TICK_INTERVAL" default:"250ms"`
	NATSURL         string        `envconfig:"NATS_URL"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	var settings Settings
	if err := envconfig.Process("draft", &settings); err != nil {
		log.Fatal().Err(err).Msg("failed to process settings")
	}

	level, err := zerolog.ParseLevel(settings.LogLevel)
	if err != nil {
		log.Warn().Str("log_level", settings.LogLevel).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	config := client.DefaultConfig()
	config.URL = settings.URL
	config.LeagueID = settings.LeagueID
	config.AuthToken = settings.Token
	config.AdminObserver = settings.Observer
	config.LowTimeThreshold = settings.LowTime
	config.SnapshotTimeout = settings.SnapshotTimeout
	config.TickInterval = settings.TickInterval

	var notifier client.Notifier = client.LogNotifier{}
	if settings.NATSURL != "" {
		natsConfig := client.DefaultNATSConfig()
		natsConfig.URL = settings.NATSURL
		nn, err := client.NewNATSNotifier(natsConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to NATS")
		}
		defer nn.Close()
		notifier = nn
	}

	lines := make(chan string)
	console := &console{out: os.Stdout}

	session, err := client.NewSession(config,
		client.WithObserver(console),
		client.WithNotifier(notifier),
		client.WithConfirmer(promptConfirmer(lines, os.Stdout)),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create draft session")
	}

	log.Info().
		Str("url", config.URL).
		Str("league_id", config.LeagueID).
		Bool("observer", config.AdminObserver).
		Msg("starting draft client")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	runner := &runner{session: session, ctx: ctx}

	// stdin reads cannot be interrupted, so the reader is not part of the group
	go readLines(ctx, os.Stdin, lines)

	g.Go(func() error {
		runner.start()
		return commandLoop(ctx, runner, lines, os.Stdout)
	})
	g.Go(func() error {
		<-ctx.Done()
		session.Close()
		runner.wait()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, errQuit) {
		log.Fatal().Err(err).Msg("draft client failed")
	}
	log.Info().Msg("draft client stopped")
}

var errQuit = errors.New("quit")

// runner runs the session in the background and restarts it on request.
type runner struct {
	session *client.Session
	ctx     context.Context

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

func (r *runner) start() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return false
	}
	r.running = true
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		err := r.session.Run(r.ctx)
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		if err != nil && !errors.Is(err, client.ErrSessionClosed) && !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Msg("draft session stopped, type 'retry' to rejoin")
		}
	}()
	return true
}

func (r *runner) wait() {
	r.wg.Wait()
}

func readLines(ctx context.Context, f *os.File, lines chan<- string) {
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		select {
		case lines <- strings.TrimSpace(scanner.Text()):
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		log.Error().Err(err).Msg("failed to read stdin")
	}
	close(lines)
}

func commandLoop(ctx context.Context, r *runner, lines <-chan string, out *os.File) error {
	fmt.Fprintln(out, "commands: pick <player-id> | players [n] | order | roster [team-id] | status | retry | quit")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case line, ok := <-lines:
			if !ok {
				return errQuit
			}
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}

			switch fields[0] {
			case "pick", "p":
				if len(fields) < 2 {
					fmt.Fprintln(out, "usage: pick <player-id>")
					continue
				}
				outcome, err := r.session.Submit(ctx, fields[1])
				if err != nil {
					fmt.Fprintf(out, "pick failed: %v\n", err)
					continue
				}
				fmt.Fprintf(out, "pick %s: %s\n", fields[1], outcome)

			case "players":
				n := 20
				if len(fields) > 1 {
					fmt.Sscanf(fields[1], "%d", &n)
				}
				printPlayers(out, r.session.State(), n)

			case "order":
				printOrder(out, r.session.State())

			case "roster":
				state := r.session.State()
				teamID := state.Actor.TeamID
				if len(fields) > 1 {
					teamID = fields[1]
				}
				printRoster(out, state.Roster(teamID))

			case "status":
				status, err := r.session.Status()
				decision := r.session.Decision()
				fmt.Fprintf(out, "status=%s can_act=%t reason=%q", status, decision.Allowed, decision.Reason)
				if err != nil {
					fmt.Fprintf(out, " error=%v", err)
				}
				fmt.Fprintln(out)

			case "retry":
				if !r.start() {
					fmt.Fprintln(out, "session is already running")
				}

			case "quit", "exit":
				return errQuit

			default:
				fmt.Fprintf(out, "unknown command %q\n", fields[0])
			}
		}
	}
}

// promptConfirmer asks on stdout and reads the answer from the command
// stream. It runs on the command loop, which is blocked in Submit meanwhile.
func promptConfirmer(lines <-chan string, out *os.File) client.Confirmer {
	return client.ConfirmFunc(func(ctx context.Context, req client.ConfirmRequest) (bool, error) {
		fmt.Fprintf(out, "draft %s (%s, %s) with pick %d? %s left [y/N] ",
			req.Player.Name, req.Player.Position, req.Player.Team,
			req.Slot.PickNumber, req.Remaining.Truncate(time.Second))

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case answer, ok := <-lines:
			if !ok {
				return false, nil
			}
			answer = strings.ToLower(answer)
			return answer == "y" || answer == "yes", nil
		}
	})
}

func printPlayers(out *os.File, state client.State, n int) {
	for i, p := range state.Pool {
		if i >= n {
			fmt.Fprintf(out, "... %d more\n", len(state.Pool)-n)
			break
		}
		fmt.Fprintf(out, "%-12s %-24s %-4s %s\n", p.ID, p.Name, p.Position, p.Team)
	}
}

func printOrder(out *os.File, state client.State) {
	for _, entry := range state.Order {
		marker := " "
		if entry.IsActiveSlot {
			marker = ">"
		}
		player := ""
		if entry.Player != nil {
			player = entry.Player.Name
		}
		mine := ""
		if entry.Team.ID == state.Actor.TeamID {
			mine = "*"
		}
		fmt.Fprintf(out, "%s %3d %-20s%s %s\n", marker, entry.PickNumber, entry.Team.Name, mine, player)
	}
}

func printRoster(out *os.File, roster models.Roster) {
	if roster.Team.ID == "" {
		fmt.Fprintln(out, "no team; use roster <team-id>")
		return
	}
	fmt.Fprintf(out, "%s: %d drafted\n", roster.Team.Name, len(roster.Entries))
	for _, e := range roster.Entries {
		fmt.Fprintf(out, "%3d %-24s %-4s %s\n", e.PickNumber, e.Player.Name, e.Player.Position, e.Player.Team)
	}
	for pos, n := range roster.Positions() {
		fmt.Fprintf(out, "  %s x%d\n", pos, n)
	}
}

// console prints session events for a human at a terminal.
type console struct {
	client.NopObserver
	out *os.File

	mu         sync.Mutex
	lastActive int
	lastUrgent bool
	lastSecond int64
	complete   bool
}

func (c *console) OnStatus(status client.Status, err error) {
	if err != nil {
		fmt.Fprintf(c.out, "[%s] %v\n", status, err)
		return
	}
	fmt.Fprintf(c.out, "[%s]\n", status)
}

func (c *console) OnState(state client.State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if state.Session.Complete {
		if !c.complete {
			fmt.Fprintln(c.out, "draft complete")
		}
		c.complete = true
		c.lastActive = -1
		return
	}
	// a rejoin may land in another draft
	c.complete = false
	slot, ok := state.ActiveEntry()
	if !ok || slot.PickNumber == c.lastActive {
		return
	}
	c.lastActive = slot.PickNumber
	c.lastUrgent = false

	if slot.Team.ID == state.Actor.TeamID {
		fmt.Fprintf(c.out, "pick %d: you are on the clock\n", slot.PickNumber)
		return
	}
	fmt.Fprintf(c.out, "pick %d: %s is on the clock\n", slot.PickNumber, slot.Team.Name)
}

func (c *console) OnTick(countdown client.Countdown) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if countdown.PreDraftActive {
		// once a minute before the start, every second in the last ten
		secs := int64(countdown.PreDraft / time.Second)
		if secs != c.lastSecond && (secs%60 == 0 || secs <= 10) {
			fmt.Fprintf(c.out, "draft starts in %s\n", countdown.PreDraft.Truncate(time.Second))
		}
		c.lastSecond = secs
		return
	}
	if countdown.Urgent && !c.lastUrgent {
		fmt.Fprintf(c.out, "%s left on the clock\n", countdown.Pick.Truncate(time.Second))
	}
	c.lastUrgent = countdown.Urgent
}

func (c *console) OnPickResolved(pick client.PendingPick, resolution client.Resolution) {
	fmt.Fprintf(c.out, "pick %d (%s): %s\n", pick.PickNumber, pick.PlayerID, resolution)
}

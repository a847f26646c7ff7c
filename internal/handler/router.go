package handler

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// HandlerFunc runs a command. args holds the whitespace separated words
// after the command name.
type HandlerFunc func(ctx context.Context, s DiscordSession, m *discordgo.MessageCreate, args []string) error

type Command struct {
	Name    string
	Aliases []string
	Handler HandlerFunc
}

// DefaultCommandTimeout bounds a single command, including joining voice
// and searching.
const DefaultCommandTimeout = 45 * time.Second

// Router dispatches prefixed guild messages to registered commands.
type Router struct {
	prefix  string
	limiter *UserLimiter
	timeout time.Duration
	logger  *slog.Logger

	commandsMu sync.RWMutex
	commands   map[string]*Command
}

// NewRouter creates a router for prefix. limiter may be nil.
func NewRouter(prefix string, limiter *UserLimiter) *Router {
	return &Router{
		prefix:   prefix,
		limiter:  limiter,
		timeout:  DefaultCommandTimeout,
		logger:   slog.Default().With("component", "router"),
		commands: make(map[string]*Command),
	}
}

func (r *Router) Prefix() string {
	return r.prefix
}

// RegisterCommand adds cmd under its name and aliases. Names are case
// insensitive. It panics on a duplicate name.
func (r *Router) RegisterCommand(cmd *Command) {
	r.commandsMu.Lock()
	defer r.commandsMu.Unlock()

	for _, name := range append([]string{cmd.Name}, cmd.Aliases...) {
		name = strings.ToLower(name)
		if _, exists := r.commands[name]; exists {
			panic("command already registered: " + name)
		}
		r.commands[name] = cmd
	}
}

// Match parses content into a registered command and its arguments.
func (r *Router) Match(content string) (*Command, []string, bool) {
	rest, ok := strings.CutPrefix(content, r.prefix)
	if !ok {
		return nil, nil, false
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return nil, nil, false
	}

	r.commandsMu.RLock()
	cmd, ok := r.commands[strings.ToLower(fields[0])]
	r.commandsMu.RUnlock()
	if !ok {
		return nil, nil, false
	}
	return cmd, fields[1:], true
}

// Route runs the command in m, if any. Errors are answered in the channel
// and then returned.
func (r *Router) Route(ctx context.Context, s DiscordSession, m *discordgo.MessageCreate) error {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return nil
	}
	cmd, args, ok := r.Match(m.Content)
	if !ok {
		return nil
	}

	var err error
	if r.limiter != nil && !r.limiter.Allow(m.Author.ID) {
		err = userErrorf("You're sending commands too quickly. Try again in a moment.")
	} else {
		err = cmd.Handler(ctx, s, m, args)
	}
	if err == nil {
		return nil
	}

	msg, _ := userMessage(err)
	if rerr := replyText(s, m, msg); rerr != nil {
		return errors.Join(err, rerr)
	}
	return err
}

// Handle is the discordgo MessageCreate handler.
func (r *Router) Handle(s *discordgo.Session, m *discordgo.MessageCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	err := r.Route(ctx, s, m)
	if err == nil {
		return
	}
	logger := r.logger.With("guildID", m.GuildID, "userID", m.Author.ID, "content", m.Content)
	if _, internal := userMessage(err); internal {
		logger.Error("Command failed", "err", err)
		return
	}
	logger.Debug("Command rejected", "err", err)
}

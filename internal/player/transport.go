package player

import "context"

type EventType int

const (
	EventStart EventType = iota
	EventEnd
	EventClosed
	EventStuck
	EventException
)

func (t EventType) String() string {
	switch t {
	case EventStart:
		return "start"
	case EventEnd:
		return "end"
	case EventClosed:
		return "closed"
	case EventStuck:
		return "stuck"
	case EventException:
		return "exception"
	default:
		return "unknown"
	}
}

// Event is a lifecycle notification emitted by a Connection.
// Track is the track the event concerns; it is zero for events that are not
// tied to a track, such as a closed voice socket.
type Event struct {
	Type   EventType
	Track  Track
	Detail string
}

// Transport establishes voice connections for a guild.
type Transport interface {
	// Connect joins the voice channel and returns once the connection can
	// carry audio. If ctx expires first, any partially created resource is
	// released before returning.
	Connect(ctx context.Context, guildID, channelID string) (Connection, error)
}

// Connection is an established voice connection owned by one GuildQueue.
//
// Events must be delivered from a goroutine owned by the connection, never
// synchronously from inside one of its methods. A track whose Play call
// returned an error must not produce events.
type Connection interface {
	ChannelID() string
	Play(ctx context.Context, track Track) error
	Stop(ctx context.Context) error
	SetPaused(ctx context.Context, paused bool) error
	Listen(handler func(Event))
	Close(ctx context.Context) error
}

// Notifier delivers informational messages to a text channel.
type Notifier interface {
	Notify(channelID, message string) error
}

// PlaybackPublisher records tracks that actually started playing.
type PlaybackPublisher interface {
	PublishTrackStarted(ctx context.Context, guildID string, track Track) error
}

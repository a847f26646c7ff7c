package lavalink

import (
	"encoding/json"
	"time"

	"github.com/glizzus/jukebox/internal/player"
)

type TrackInfo struct {
	Identifier string `json:"identifier"`
	IsSeekable bool   `json:"isSeekable"`
	Author     string `json:"author"`
	Length     int64  `json:"length"`
	IsStream   bool   `json:"isStream"`
	Position   int64  `json:"position"`
	Title      string `json:"title"`
	URI        string `json:"uri"`
	ArtworkURL string `json:"artworkUrl"`
	SourceName string `json:"sourceName"`
}

type Track struct {
	Encoded string    `json:"encoded"`
	Info    TrackInfo `json:"info"`
}

// PlayerTrack converts a node track into a queue track. The encoded payload
// becomes the SourceRef so the node can play it without resolving again.
func (t Track) PlayerTrack() player.Track {
	var d time.Duration
	if !t.Info.IsStream {
		d = time.Duration(t.Info.Length) * time.Millisecond
	}
	return player.Track{
		Title:     t.Info.Title,
		SourceRef: t.Encoded,
		URL:       t.Info.URI,
		Author:    t.Info.Author,
		Duration:  d,
	}
}

type Exception struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Cause    string `json:"cause"`
}

const (
	LoadTypeTrack    = "track"
	LoadTypePlaylist = "playlist"
	LoadTypeSearch   = "search"
	LoadTypeEmpty    = "empty"
	LoadTypeError    = "error"
)

// LoadResult is the /v4/loadtracks response. Data depends on LoadType.
type LoadResult struct {
	LoadType string          `json:"loadType"`
	Data     json.RawMessage `json:"data"`
}

type PlaylistData struct {
	Info struct {
		Name          string `json:"name"`
		SelectedTrack int    `json:"selectedTrack"`
	} `json:"info"`
	Tracks []Track `json:"tracks"`
}

// Tracks decodes the tracks carried by the result, if any.
func (r *LoadResult) Tracks() ([]Track, error) {
	switch r.LoadType {
	case LoadTypeTrack:
		var t Track
		if err := json.Unmarshal(r.Data, &t); err != nil {
			return nil, err
		}
		return []Track{t}, nil
	case LoadTypePlaylist:
		var p PlaylistData
		if err := json.Unmarshal(r.Data, &p); err != nil {
			return nil, err
		}
		return p.Tracks, nil
	case LoadTypeSearch:
		var ts []Track
		if err := json.Unmarshal(r.Data, &ts); err != nil {
			return nil, err
		}
		return ts, nil
	default:
		return nil, nil
	}
}

// Exception decodes the failure carried by an error result.
func (r *LoadResult) Exception() *Exception {
	if r.LoadType != LoadTypeError {
		return nil
	}
	var e Exception
	if err := json.Unmarshal(r.Data, &e); err != nil {
		return &Exception{Message: "unknown error"}
	}
	return &e
}

type VoiceState struct {
	Token     string `json:"token"`
	Endpoint  string `json:"endpoint"`
	SessionID string `json:"sessionId"`
}

// TrackUpdate with a nil Encoded serializes as {"encoded":null}, which stops the player.
type TrackUpdate struct {
	Encoded *string `json:"encoded"`
}

type PlayerUpdate struct {
	Track  *TrackUpdate `json:"track,omitempty"`
	Paused *bool        `json:"paused,omitempty"`
	Volume *int         `json:"volume,omitempty"`
	Voice  *VoiceState  `json:"voice,omitempty"`
}

// message is any frame received on the node websocket.
type message struct {
	Op string `json:"op"`

	// ready
	Resumed   bool   `json:"resumed"`
	SessionID string `json:"sessionId"`

	// playerUpdate and event
	GuildID string `json:"guildId"`
	State   *struct {
		Time      int64 `json:"time"`
		Position  int64 `json:"position"`
		Connected bool  `json:"connected"`
		Ping      int64 `json:"ping"`
	} `json:"state"`

	// event
	Type        string     `json:"type"`
	Track       *Track     `json:"track"`
	Reason      string     `json:"reason"`
	Exception   *Exception `json:"exception"`
	ThresholdMs int64      `json:"thresholdMs"`
	Code        int        `json:"code"`
	ByRemote    bool       `json:"byRemote"`

	// stats
	Players        int   `json:"players"`
	PlayingPlayers int   `json:"playingPlayers"`
	Uptime         int64 `json:"uptime"`
}

// NodeEvent is a player event received from a node for one guild.
// NodeEvent is a player event from a node. Node names the node it came from.
type NodeEvent struct {
	Node      string
	GuildID   string
	Type      string
	Track     *Track
	Reason    string
	Exception *Exception
	Code      int
	ByRemote  bool
}

const (
	eventTrackStart      = "TrackStartEvent"
	eventTrackEnd        = "TrackEndEvent"
	eventTrackException  = "TrackExceptionEvent"
	eventTrackStuck      = "TrackStuckEvent"
	eventWebSocketClosed = "WebSocketClosedEvent"

	// eventNodeLost is raised locally when a node's websocket drops and
	// every player on it is gone.
	eventNodeLost = "NodeLost"
)

type Stats struct {
	Players        int
	PlayingPlayers int
	Uptime         time.Duration
}

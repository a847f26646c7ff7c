// Package lavalink talks to Lavalink v4 nodes.
//
// A Pool keeps websocket sessions to one or more nodes and re-dials nodes
// that dropped. Track resolution goes through the node REST API, and the
// Transport drives remote players for the player package, joining voice
// through the Discord gateway and handing the voice credentials to the node.
package lavalink

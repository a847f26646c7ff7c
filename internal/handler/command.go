package handler

// Commands lists every prefix command the bot answers to.
func Commands(music *Music, speech *Speech, status *Status, translation *Translation) []*Command {
	return []*Command{
		PingCommand,
		{Name: "play", Aliases: []string{"p"}, Handler: music.Play},
		{Name: "skip", Aliases: []string{"s", "next"}, Handler: music.Skip},
		{Name: "stop", Aliases: []string{"leave"}, Handler: music.Stop},
		{Name: "pause", Handler: music.Pause},
		{Name: "resume", Handler: music.Resume},
		{Name: "queue", Aliases: []string{"q"}, Handler: music.Queue},
		{Name: "nowplaying", Aliases: []string{"np"}, Handler: music.NowPlaying},
		{Name: "speak", Aliases: []string{"tts", "say", "voice"}, Handler: speech.Speak},
		{Name: "translate", Aliases: []string{"tr", "trans"}, Handler: translation.Translate},
		{Name: "llstatus", Aliases: []string{"lavalink", "ll"}, Handler: status.NodeStatus},
		{Name: "history", Handler: status.History},
	}
}

// EstablishCommands registers every command on the router.
func EstablishCommands(r *Router, commands []*Command) {
	for _, cmd := range commands {
		r.RegisterCommand(cmd)
	}
}

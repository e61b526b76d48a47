package entity

// ChannelTag enumerates the closed set of notification transports the
// dispatcher can target.
type ChannelTag string

const (
	ChannelNtfy     ChannelTag = "ntfy"
	ChannelSlack    ChannelTag = "slack"
	ChannelDiscord  ChannelTag = "discord"
	ChannelGotify   ChannelTag = "gotify"
	ChannelTelegram ChannelTag = "telegram"
	ChannelPushover ChannelTag = "pushover"
	ChannelMatrix   ChannelTag = "matrix"
	ChannelEmail    ChannelTag = "email"
	ChannelShell    ChannelTag = "shell"
)

func (c ChannelTag) Valid() bool {
	switch c {
	case ChannelNtfy, ChannelSlack, ChannelDiscord, ChannelGotify, ChannelTelegram,
		ChannelPushover, ChannelMatrix, ChannelEmail, ChannelShell:
		return true
	default:
		return false
	}
}

// QuietHours is a daily wall-clock suppression window in local time, with
// wraparound when End < Start (e.g. 22:00-07:00).
type QuietHours struct {
	Start, End TimeOfDay
}

// TimeOfDay is a wall-clock hour:minute, independent of any date.
type TimeOfDay struct {
	Hour, Minute int
}

// Within reports whether t falls in [qh.Start, qh.End], handling the
// wraparound case where End < Start.
func (qh QuietHours) Within(t TimeOfDay) bool {
	start := qh.Start.Hour*60 + qh.Start.Minute
	end := qh.End.Hour*60 + qh.End.Minute
	now := t.Hour*60 + t.Minute
	if start <= end {
		return now >= start && now <= end
	}
	return now >= start || now <= end
}

// NotificationTarget is the tagged union of per-channel configuration,
// with the channel-agnostic quiet-hours window carried alongside it.
type NotificationTarget struct {
	Channel ChannelTag
	Quiet   *QuietHours

	// Fields populated depending on Channel; unused fields for the selected
	// tag are the zero value.
	NtfyTopic        string
	NtfyServerURL    string
	SlackWebhookURL  string
	DiscordWebhook   string
	GotifyURL        string
	GotifyToken      string
	TelegramToken    string
	TelegramChatID   string
	PushoverToken    string
	PushoverUser     string
	MatrixHomeserver string
	MatrixRoomID     string
	MatrixToken      string
	EmailTo          string
	ShellCommand     string
}

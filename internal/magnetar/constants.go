package magnetar

import "time"

// Command codes understood by the Magnetar firmware
const (
	// Navigation
	NavigateUp      CommandCode = "NUP"
	NavigateDown    CommandCode = "NDN"
	NavigateLeft    CommandCode = "NLT"
	NavigateRight   CommandCode = "NRT"
	NavigateConfirm CommandCode = "SEL"
	OSD             CommandCode = "OSD"

	// Playback
	Play          CommandCode = "PLA"
	Pause         CommandCode = "PAU"
	Stop          CommandCode = "STP"
	FastForward   CommandCode = "FWD"
	Rewind        CommandCode = "REV"
	NextTrack     CommandCode = "NXT"
	PreviousTrack CommandCode = "PRE"

	// Power and audio
	PowerOn  CommandCode = "PON"
	PowerOff CommandCode = "POF"
	Mute     CommandCode = "MUT"

	// Subtitles
	Subtitles CommandCode = "SUB"
)

// Wire framing
const (
	FramePrefix     = "#"
	FrameTerminator = "\r\n"

	// Ack is the line a healthy device answers with after each command
	Ack = "ack\r\n"
)

// Session parameters
const (
	DataBits = 8
	StopBits = 1

	ReadTimeout    = 1 * time.Second
	CommandPacing  = 400 * time.Millisecond
	ConnectTimeout = 5 * time.Second

	// Defaults offered by the pairing flow
	DefaultHost     = "192.168.67.123"
	DefaultPort     = 8102
	DefaultBaudRate = 152000
)

// knownCodes is the closed set of codes accepted by Sequence.Validate
var knownCodes = map[CommandCode]struct{}{
	NavigateUp:      {},
	NavigateDown:    {},
	NavigateLeft:    {},
	NavigateRight:   {},
	NavigateConfirm: {},
	OSD:             {},
	Play:            {},
	Pause:           {},
	Stop:            {},
	FastForward:     {},
	Rewind:          {},
	NextTrack:       {},
	PreviousTrack:   {},
	PowerOn:         {},
	PowerOff:        {},
	Mute:            {},
	Subtitles:       {},
}

package magnetar

// subtitlesEnglish walks the on-screen subtitle menu from its default entry to
// English: open the menu, step down once, confirm, close the menu.
var subtitlesEnglish = Sequence{Subtitles, NavigateDown, NavigateConfirm, Subtitles}

// Action keys
const (
	ActionSubtitles       = "subtitles"
	ActionStop            = "stop"
	ActionPlay            = "play"
	ActionPause           = "pause"
	ActionPowerOn         = "power_on"
	ActionPowerOff        = "power_off"
	ActionMute            = "mute"
	ActionNavigateConfirm = "navigate_confirm"
	ActionNavigateUp      = "navigate_up"
	ActionNavigateDown    = "navigate_down"
	ActionNavigateLeft    = "navigate_left"
	ActionNavigateRight   = "navigate_right"
	ActionFastForward     = "fast_forward"
	ActionRewind          = "rewind"
	ActionNextTrack       = "next_track"
	ActionPreviousTrack   = "previous_track"
	ActionOSD             = "osd"
)

var catalog = []Action{
	{Key: ActionSubtitles, Name: "Subtitles", Sequence: subtitlesEnglish},
	{Key: ActionStop, Name: "Stop", Sequence: Sequence{Stop}},
	{Key: ActionPlay, Name: "Play", Sequence: Sequence{Play}},
	{Key: ActionPause, Name: "Pause", Sequence: Sequence{Pause}},
	{Key: ActionPowerOn, Name: "Power On", Sequence: Sequence{PowerOn}},
	{Key: ActionPowerOff, Name: "Power Off", Sequence: Sequence{PowerOff}},
	{Key: ActionMute, Name: "Mute", Sequence: Sequence{Mute}},
	{Key: ActionNavigateConfirm, Name: "Navigate Confirm", Sequence: Sequence{NavigateConfirm}},
	{Key: ActionNavigateUp, Name: "Navigate Up", Sequence: Sequence{NavigateUp}},
	{Key: ActionNavigateDown, Name: "Navigate Down", Sequence: Sequence{NavigateDown}},
	{Key: ActionNavigateLeft, Name: "Navigate Left", Sequence: Sequence{NavigateLeft}},
	{Key: ActionNavigateRight, Name: "Navigate Right", Sequence: Sequence{NavigateRight}},
	{Key: ActionFastForward, Name: "Fast Forward", Sequence: Sequence{FastForward}},
	{Key: ActionRewind, Name: "Rewind", Sequence: Sequence{Rewind}},
	{Key: ActionNextTrack, Name: "Next Track", Sequence: Sequence{NextTrack}},
	{Key: ActionPreviousTrack, Name: "Previous Track", Sequence: Sequence{PreviousTrack}},
	{Key: ActionOSD, Name: "On Screen Display", Sequence: Sequence{OSD}},
}

var catalogIndex = func() map[string]int {
	index := make(map[string]int, len(catalog))
	for i, action := range catalog {
		index[action.Key] = i
	}
	return index
}()

// Catalog returns every action in display order. The result is a deep copy;
// changing it has no effect on later lookups.
func Catalog() []Action {
	actions := make([]Action, len(catalog))
	for i, action := range catalog {
		actions[i] = action.clone()
	}
	return actions
}

// Lookup returns the catalog entry for an action key
func Lookup(key string) (Action, bool) {
	i, ok := catalogIndex[key]
	if !ok {
		return Action{}, false
	}
	return catalog[i].clone(), true
}

// ActionKeys returns the action keys in display order
func ActionKeys() []string {
	keys := make([]string, len(catalog))
	for i, action := range catalog {
		keys[i] = action.Key
	}
	return keys
}

func (a Action) clone() Action {
	a.Sequence = a.Sequence.Clone()
	return a
}

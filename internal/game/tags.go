package game

import "maps"

// Standard tag names. The first seven are the PGN seven-tag roster order.
const (
	TagEvent  = "Event"
	TagSite   = "Site"
	TagDate   = "Date"
	TagRound  = "Round"
	TagWhite  = "White"
	TagBlack  = "Black"
	TagResult = "Result"
	TagFEN    = "FEN"
	TagSetUp  = "SetUp"
)

const (
	PlayerUser = "User"
	PlayerCPU  = "CPU"
)

// DefaultTags are applied by NewGame unless overridden in Options.Tags.
func DefaultTags() map[string]string {
	return map[string]string{
		TagEvent: "Casual Game",
		TagSite:  "?",
		TagDate:  "????.??.??",
		TagRound: "-",
		TagWhite: PlayerUser,
		TagBlack: PlayerCPU,
	}
}

func mergeTags(base, overrides map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(overrides))
	maps.Copy(out, base)
	for k, v := range overrides {
		if v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

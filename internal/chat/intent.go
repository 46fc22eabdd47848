package chat

import (
	"regexp"
	"strings"
)

// Kind enumerates the fixed intent set.
type Kind int

const (
	KindUnknown Kind = iota
	KindListSectors
	KindListWarehouses
	KindAddLog
	KindGreeting
	KindPreviousQuestions
)

func (k Kind) String() string {
	switch k {
	case KindListSectors:
		return "list_sectors"
	case KindListWarehouses:
		return "list_warehouses_in_sector"
	case KindAddLog:
		return "add_log"
	case KindGreeting:
		return "greeting"
	case KindPreviousQuestions:
		return "previous_questions"
	default:
		return "unknown"
	}
}

// Intent is the typed classification result. Warehouse and Sector carry the
// extracted entity tokens, already canonicalized ("2" becomes "Sector 2").
type Intent struct {
	Kind      Kind
	Warehouse string
	Sector    string
}

var (
	reShowSectors = regexp.MustCompile(`show\s+.*\s+sectors?\s+list`)
	reListSectors = regexp.MustCompile(`list\s+.*\s+sectors`)
	reAddLog      = regexp.MustCompile(`add\s+.*\s+log\s+in\s+warehouse\s+(\d+|[a-zA-Z]+\s*\d*)\s+in\s+sector\s+(\d+|[a-zA-Z]+\s*\d*)`)
	reWarehouses  = regexp.MustCompile(`warehouses?\s+in\s+sector\s+(\d+|[a-zA-Z]+\s*\d*)`)
	reGreeting    = regexp.MustCompile(`hello|hi|hey|greetings`)
	reWhoAreYou   = regexp.MustCompile(`who\s+are\s+you`)
	rePrevious    = regexp.MustCompile(`previous\s+questions|what\s+did\s+i\s+ask|what\s+were\s+my\s+questions`)
	reDigits      = regexp.MustCompile(`^\d+$`)
)

// matchers are evaluated top-down; the first hit wins. The multi-entity
// add-log pattern runs before the single-entity warehouse listing so a log
// request is never misread as a listing when both nouns appear.
var matchers = []func(string) (Intent, bool){
	matchListSectors,
	matchAddLog,
	matchListWarehouses,
	matchGreeting,
	matchPreviousQuestions,
}

// Classify maps a raw message to an Intent. Input is lowercased before
// matching; entity names are re-resolved case-insensitively downstream, so
// the original casing is never needed.
func Classify(message string) Intent {
	message = strings.ToLower(message)

	for _, match := range matchers {
		if intent, ok := match(message); ok {
			return intent
		}
	}
	return Intent{Kind: KindUnknown}
}

func matchListSectors(msg string) (Intent, bool) {
	if reShowSectors.MatchString(msg) || reListSectors.MatchString(msg) {
		return Intent{Kind: KindListSectors}, true
	}
	return Intent{}, false
}

func matchAddLog(msg string) (Intent, bool) {
	m := reAddLog.FindStringSubmatch(msg)
	if m == nil {
		return Intent{}, false
	}
	return Intent{
		Kind:      KindAddLog,
		Warehouse: canonicalize(m[1], "Warehouse"),
		Sector:    canonicalize(m[2], "Sector"),
	}, true
}

func matchListWarehouses(msg string) (Intent, bool) {
	m := reWarehouses.FindStringSubmatch(msg)
	if m == nil {
		return Intent{}, false
	}
	return Intent{
		Kind:   KindListWarehouses,
		Sector: canonicalize(m[1], "Sector"),
	}, true
}

func matchGreeting(msg string) (Intent, bool) {
	if reGreeting.MatchString(msg) || reWhoAreYou.MatchString(msg) {
		return Intent{Kind: KindGreeting}, true
	}
	return Intent{}, false
}

func matchPreviousQuestions(msg string) (Intent, bool) {
	if rePrevious.MatchString(msg) {
		return Intent{Kind: KindPreviousQuestions}, true
	}
	return Intent{}, false
}

// canonicalize prefixes bare numeric tokens ("2" -> "Sector 2") so they
// resolve against the conventional entity names.
func canonicalize(token, prefix string) string {
	token = strings.TrimSpace(token)
	if reDigits.MatchString(token) {
		return prefix + " " + token
	}
	return token
}

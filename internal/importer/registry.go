package importer

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/Faultbox/fbxflatten/pkg/fbxscene"
)

// Load failure causes.
var (
	ErrNoParser            = errors.New("no parser for file type")
	ErrNoScene             = errors.New("parser returned no scene")
	ErrMissingExternalFile = errors.New("missing external file")
)

var (
	parsersMu sync.RWMutex
	parsers   = map[string]fbxscene.Parser{
		".fbxs.yaml": fbxscene.DocumentParser{},
		".fbxs.yml":  fbxscene.DocumentParser{},
		".yaml":      fbxscene.DocumentParser{},
		".yml":       fbxscene.DocumentParser{},
	}
)

// RegisterParser makes a parser available for files ending in suffix,
// for example ".fbx". Registering the same suffix again replaces it.
func RegisterParser(suffix string, p fbxscene.Parser) {
	parsersMu.Lock()
	defer parsersMu.Unlock()
	parsers[strings.ToLower(suffix)] = p
}

// ParserFor returns the parser registered for the longest suffix of path.
func ParserFor(path string) (fbxscene.Parser, bool) {
	parsersMu.RLock()
	defer parsersMu.RUnlock()

	lower := strings.ToLower(path)
	var (
		best    fbxscene.Parser
		bestLen int
	)
	for suffix, p := range parsers {
		if strings.HasSuffix(lower, suffix) && len(suffix) > bestLen {
			best, bestLen = p, len(suffix)
		}
	}
	return best, best != nil
}

// Extensions returns the registered suffixes, sorted.
func Extensions() []string {
	parsersMu.RLock()
	defer parsersMu.RUnlock()

	out := make([]string, 0, len(parsers))
	for suffix := range parsers {
		out = append(out, suffix)
	}
	sort.Strings(out)
	return out
}

package translation

import (
	"context"
	"errors"

	"github.com/lingochat/lingochat/internal/types"
)

// ErrNoTranslations is returned when no target language could be
// translated at all. Partial failures are not errors: callers receive
// whatever subset succeeded.
var ErrNoTranslations = errors.New("no translations produced")

// Translator produces translations of text into every supported language
// other than source. Implementations must honor ctx cancellation and
// deadlines; the caller bounds every call with a hard timeout.
//
// The returned map contains only the languages that succeeded. Clients
// cannot distinguish a failed translation from a slow one.
type Translator interface {
	Translate(ctx context.Context, text string, source types.Language) (map[types.Language]string, error)
}

package ledger

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Reference prefixes
const (
	RefTransfer = "TRF"
	RefOpening  = "OPN"
	RefAdmin    = "ADM"
)

var accountIDSpan = big.NewInt(90_000_000)

// RandomIDs issues eight digit account numbers and time plus uuid references
type RandomIDs struct{}

// AccountID returns a random number in [10000000, 99999999]
func (RandomIDs) AccountID() (string, error) {
	n, err := rand.Int(rand.Reader, accountIDSpan)
	if err != nil {
		return "", fmt.Errorf("generate account id: %w", err)
	}
	return fmt.Sprintf("%08d", n.Int64()+10_000_000), nil
}

// Reference returns e.g. TRF1718000000000-9F1C2A7B
func (RandomIDs) Reference(prefix string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s%d-%s", prefix, time.Now().UnixMilli(), suffix)
}

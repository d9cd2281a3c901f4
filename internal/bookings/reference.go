package bookings

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// referenceMaxLen is the storage limit for booking references. The value is
// part of the external contract: references end up in payment gateway
// metadata and customer emails.
const referenceMaxLen = 20

// GenerateReference produces a human-readable booking reference from a
// time-based component and a random component. It is not unique by
// construction; the lifecycle service verifies uniqueness against storage
// and retries on collision.
func GenerateReference() string {
	ts := strconv.FormatInt(time.Now().UTC().Unix(), 36)
	random := uuid.New()
	suffix := fmt.Sprintf("%X", random[:3])
	ref := strings.ToUpper("PB" + ts + suffix)
	if len(ref) > referenceMaxLen {
		ref = ref[:referenceMaxLen]
	}
	return ref
}

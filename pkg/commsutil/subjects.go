package commsutil

import "fmt"

// Default COMMS subjects.
const (
	SubjectRPC         = "da.rpc.v1"
	SubjectChangeEvent = "da.whitelist.changed"
)

// BuildChangeSubject builds the per-product whitelist change subject under base.
func BuildChangeSubject(base string, productID int64) string {
	return fmt.Sprintf("%s.%d", base, productID)
}

package domain

// QueueKind is a category of pending records reviewable by staff.
type QueueKind string

const (
	QueueDean        QueueKind = "dean"
	QueueCertificate QueueKind = "certificate"
	QueueComplaint   QueueKind = "complaint"
	QueuePass        QueueKind = "pass"
	QueueUnban       QueueKind = "unban"
)

// AllQueueKinds lists every reviewable queue.
var AllQueueKinds = []QueueKind{
	QueueDean, QueueCertificate, QueueComplaint, QueuePass, QueueUnban,
}

// Valid reports whether k is one of the known queue kinds.
func (k QueueKind) Valid() bool {
	_, ok := ParseQueueKind(string(k))
	return ok
}

// ParseQueueKind returns the kind matching s, or false for an unknown value.
func ParseQueueKind(s string) (QueueKind, bool) {
	for _, k := range AllQueueKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

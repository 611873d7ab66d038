package domain

// AdmitResult mirrors the integer status returned by the admission script.
type AdmitResult int

const (
	AdmitAccepted   AdmitResult = 0
	AdmitOutOfStock AdmitResult = 1
	AdmitDuplicate  AdmitResult = 2
)

func (r AdmitResult) String() string {
	switch r {
	case AdmitAccepted:
		return "accepted"
	case AdmitOutOfStock:
		return "out_of_stock"
	case AdmitDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

package models

// DeliveryOutcome records the result of one broadcast send.
type DeliveryOutcome struct {
	Destination string `json:"destination"`
	OK          bool   `json:"ok"`
}

// Delivered counts the successful sends in a fan-out sweep.
func Delivered(outcomes []DeliveryOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.OK {
			n++
		}
	}
	return n
}

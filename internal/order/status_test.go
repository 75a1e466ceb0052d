package order

import "testing"

func TestCanTransition(t *testing.T) {
	tests := map[string]struct {
		from Status
		to   Status
		want bool
	}{
		"pending to confirmed": {StatusPending, StatusConfirmed, true},
		"pending to cancelled": {StatusPending, StatusCancelled, true},
		"pending to shipped": {StatusPending, StatusShipped, false},
		"confirmed to shipped": {StatusConfirmed, StatusShipped, true},
		"confirmed to cancelled": {StatusConfirmed, StatusCancelled, true},
		"shipped to delivered": {StatusShipped, StatusDelivered, true},
		"shipped to cancelled": {StatusShipped, StatusCancelled, false},
		"delivered is terminal": {StatusDelivered, StatusCancelled, false},
		"cancelled is terminal": {StatusCancelled, StatusConfirmed, false},
		"no transition to self": {StatusPending, StatusPending, false},
		"unknown source": {Status("archived"), StatusConfirmed, false},
		"unknown target": {StatusPending, Status("archived"), false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := CanTransition(tc.from, tc.to); got != tc.want {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled} {
		if !ValidStatus(s) {
			t.Fatalf("expected %s to be valid", s)
		}
	}
	if ValidStatus(Status("archived")) {
		t.Fatal("expected archived to be invalid")
	}
}

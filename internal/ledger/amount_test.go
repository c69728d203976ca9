package ledger

import "testing"

func TestLamports_String(t *testing.T) {
	tests := []struct {
		in   Lamports
		want string
	}{
		{0, "0 SOL"},
		{1, "0.000000001 SOL"},
		{1_500_000_000, "1.5 SOL"},
		{LamportsPerSOL, "1 SOL"},
		{18_446_744_073_709_551_615, "18446744073.709551615 SOL"},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("Lamports(%d).String() = %q, want %q", uint64(tt.in), got, tt.want)
		}
	}
}

func TestParseSOL(t *testing.T) {
	tests := []struct {
		in      string
		want    Lamports
		wantErr bool
	}{
		{"1.5", 1_500_000_000, false},
		{"0.000000001", 1, false},
		{"42", 42 * LamportsPerSOL, false},
		{"0.0000000001", 0, true},
		{"-1", 0, true},
		{"abc", 0, true},
		{"99999999999", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSOL(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSOL(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseSOL(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

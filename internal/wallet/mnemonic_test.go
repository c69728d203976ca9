package wallet

import (
	"errors"
	"strings"
	"testing"

	"github.com/tyler-smith/go-bip39"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestGenerateMnemonic(t *testing.T) {
	mnemonic, err := GenerateMnemonic(0)
	if err != nil {
		t.Fatalf("GenerateMnemonic() error: %v", err)
	}

	words := strings.Fields(mnemonic)
	if len(words) != 12 {
		t.Errorf("word count = %d, want 12", len(words))
	}
}

func TestGenerateMnemonic_WordCounts(t *testing.T) {
	for _, bits := range []int{128, 160, 192, 224, 256} {
		mnemonic, err := GenerateMnemonic(bits)
		if err != nil {
			t.Fatalf("GenerateMnemonic(%d) error: %v", bits, err)
		}
		if got := len(strings.Fields(mnemonic)); got != WordCount(bits) {
			t.Errorf("GenerateMnemonic(%d) word count = %d, want %d", bits, got, WordCount(bits))
		}
		if !ValidateMnemonic(mnemonic) {
			t.Errorf("GenerateMnemonic(%d) produced an invalid mnemonic", bits)
		}
	}
}

func TestGenerateMnemonic_InvalidSize(t *testing.T) {
	for _, bits := range []int{64, 127, 130, 288} {
		_, err := GenerateMnemonic(bits)
		if !errors.Is(err, ErrInvalidEntropySize) {
			t.Errorf("GenerateMnemonic(%d) error = %v, want ErrInvalidEntropySize", bits, err)
		}
	}
}

func TestGenerateMnemonic_Unique(t *testing.T) {
	m1, err := GenerateMnemonic(0)
	if err != nil {
		t.Fatalf("GenerateMnemonic() error: %v", err)
	}
	m2, err := GenerateMnemonic(0)
	if err != nil {
		t.Fatalf("GenerateMnemonic() error: %v", err)
	}

	if m1 == m2 {
		t.Error("two generated mnemonics should not be identical")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("no entropy") }

func TestGenerateMnemonic_EntropyUnavailable(t *testing.T) {
	_, err := GenerateMnemonicFrom(failingReader{}, 128)
	if !errors.Is(err, ErrEntropyUnavailable) {
		t.Fatalf("error = %v, want ErrEntropyUnavailable", err)
	}

	_, err = GenerateMnemonicFrom(strings.NewReader("short"), 128)
	if !errors.Is(err, ErrEntropyUnavailable) {
		t.Fatalf("short read error = %v, want ErrEntropyUnavailable", err)
	}
}

func TestGenerateMnemonicFrom_Deterministic(t *testing.T) {
	zeros := strings.NewReader(strings.Repeat("\x00", 16))
	mnemonic, err := GenerateMnemonicFrom(zeros, 128)
	if err != nil {
		t.Fatalf("GenerateMnemonicFrom() error: %v", err)
	}
	if mnemonic != testMnemonic {
		t.Errorf("zero entropy mnemonic = %q, want %q", mnemonic, testMnemonic)
	}
}

func TestValidateMnemonic(t *testing.T) {
	tests := []struct {
		name     string
		mnemonic string
		valid    bool
	}{
		{
			name:     "valid 24-word BIP-39",
			mnemonic: "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon art",
			valid:    true,
		},
		{
			name:     "valid 12-word BIP-39",
			mnemonic: testMnemonic,
			valid:    true,
		},
		{
			name:     "surrounding whitespace",
			mnemonic: "  " + testMnemonic + "\n",
			valid:    true,
		},
		{
			name:     "empty string",
			mnemonic: "",
			valid:    false,
		},
		{
			name:     "random words",
			mnemonic: "not a valid mnemonic phrase at all",
			valid:    false,
		},
		{
			name:     "wrong checksum",
			mnemonic: "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon",
			valid:    false,
		},
		{
			name:     "word outside wordlist",
			mnemonic: "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon solana",
			valid:    false,
		},
		{
			name:     "thirteen words",
			mnemonic: testMnemonic + " abandon",
			valid:    false,
		},
		{
			name:     "single word",
			mnemonic: "abandon",
			valid:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateMnemonic(tt.mnemonic); got != tt.valid {
				t.Errorf("ValidateMnemonic() = %v, want %v", got, tt.valid)
			}
		})
	}
}

// Flipping any of the four checksum bits carried by the last word of a
// 12-word phrase must break validation.
func TestValidateMnemonic_ChecksumBitFlip(t *testing.T) {
	words := strings.Fields(testMnemonic)
	last, ok := bip39.GetWordIndex(words[len(words)-1])
	if !ok {
		t.Fatal("last word not in wordlist")
	}
	list := bip39.GetWordList()

	for bit := 0; bit < 4; bit++ {
		flipped := append([]string(nil), words...)
		flipped[len(flipped)-1] = list[last^(1<<bit)]
		phrase := strings.Join(flipped, " ")
		if ValidateMnemonic(phrase) {
			t.Errorf("bit %d flip (%q) should fail checksum", bit, flipped[len(flipped)-1])
		}
	}

	// Concrete counterexample: "about" (index 3) -> "able" (index 2).
	if ValidateMnemonic(strings.TrimSuffix(testMnemonic, "about") + "able") {
		t.Error("phrase ending in able should fail checksum")
	}
}

func TestNormalizeMnemonic(t *testing.T) {
	got := NormalizeMnemonic("\t abandon  ability \n able ")
	if got != "abandon ability able" {
		t.Errorf("NormalizeMnemonic() = %q", got)
	}
}

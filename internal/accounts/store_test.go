package accounts

import (
	"bytes"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/velocity-wallet/velocity/internal/storage"
	"github.com/velocity-wallet/velocity/internal/wallet"
	"github.com/velocity-wallet/velocity/pkg/types"
)

// Published BIP-39 vectors, all with valid checksums.
var testPhrases = []string{
	"abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about",
	"legal winner thank year wave sausage worth useful legal winner thank yellow",
	"letter advice cage absurd amount doctor acoustic avoid letter advice cage above",
	"zoo zoo zoo zoo zoo zoo zoo zoo zoo zoo zoo wrong",
}

// abandonPubKey is the m/44'/501'/0'/0' public key of testPhrases[0].
const abandonPubKey = "HAgk14JpMQLgt6rVgv7cBQFJWFto5Dqxi472uT3DKpqk"

// sequence returns a generator cycling through testPhrases.
func sequence() func() (string, error) {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		p := testPhrases[i%len(testPhrases)]
		i++
		return p, nil
	}
}

type fixture struct {
	inner *storage.MemoryDB
	store *Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	inner := storage.NewMemory()
	s := New(storage.NewPrefixDB(inner, []byte("wallet/")), storage.NewPrefixDB(inner, []byte("prefs/")))
	s.SetGenerator(sequence())
	return &fixture{inner: inner, store: s}
}

// reopen builds a second store over the same backing data and loads it.
func (f *fixture) reopen(t *testing.T) (*Store, error) {
	t.Helper()
	s := New(storage.NewPrefixDB(f.inner, []byte("wallet/")), storage.NewPrefixDB(f.inner, []byte("prefs/")))
	return s, s.Load()
}

func (f *fixture) raw(t *testing.T) []byte {
	t.Helper()
	data, err := f.inner.Get([]byte("wallet/" + CollectionKey))
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		t.Fatalf("raw Get: %v", err)
	}
	return data
}

func mustCreate(t *testing.T, s *Store, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := s.Create(""); err != nil {
			t.Fatalf("Create #%d: %v", i, err)
		}
	}
}

func TestStore_CreateDerivesAtIndexZero(t *testing.T) {
	f := newFixture(t)

	acct, err := f.store.Create("main")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if acct.PublicKey != abandonPubKey {
		t.Errorf("PublicKey = %s, want %s", acct.PublicKey, abandonPubKey)
	}
	if acct.Index != 0 || acct.Label != "main" {
		t.Errorf("Index/Label = %d/%q, want 0/main", acct.Index, acct.Label)
	}

	second, err := f.store.Create("")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if second.Index != 0 {
		t.Errorf("second account Index = %d, want 0", second.Index)
	}
	if second.Mnemonic == acct.Mnemonic {
		t.Error("second account reused the first mnemonic")
	}
	if got := f.store.ActiveIndex(); got != 1 {
		t.Errorf("ActiveIndex = %d, want 1", got)
	}
}

func TestStore_CreateGeneratorFailure(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("no entropy")
	f.store.SetGenerator(func() (string, error) { return "", boom })

	if _, err := f.store.Create(""); !errors.Is(err, boom) {
		t.Fatalf("Create err = %v, want %v", err, boom)
	}
	if f.store.Len() != 0 {
		t.Errorf("Len = %d after failed Create, want 0", f.store.Len())
	}
}

func TestStore_CreateTwiceThenDeleteTwice(t *testing.T) {
	f := newFixture(t)
	mustCreate(t, f.store, 2)

	if err := f.store.Delete(0); err != nil {
		t.Fatalf("first Delete: %v", err)
	}
	if err := f.store.Delete(0); !errors.Is(err, ErrLastAccount) {
		t.Fatalf("second Delete err = %v, want ErrLastAccount", err)
	}
	if f.store.Len() != 1 {
		t.Errorf("Len = %d, want 1", f.store.Len())
	}
}

func TestStore_NeverEmptiedByDelete(t *testing.T) {
	f := newFixture(t)
	mustCreate(t, f.store, 4)

	for _, i := range []int{3, 0, 1, 0, 0, 0} {
		f.store.Delete(i)
		if f.store.Len() == 0 {
			t.Fatalf("collection emptied after Delete(%d)", i)
		}
	}
	if f.store.Len() != 1 {
		t.Errorf("Len = %d, want 1", f.store.Len())
	}
}

func TestStore_Restore(t *testing.T) {
	f := newFixture(t)

	acct, err := f.store.Restore("  "+testPhrases[0]+"\n", 0, "restored")
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if acct.PublicKey != abandonPubKey {
		t.Errorf("PublicKey = %s, want %s", acct.PublicKey, abandonPubKey)
	}
	if acct.Mnemonic != testPhrases[0] {
		t.Errorf("Mnemonic not normalized: %q", acct.Mnemonic)
	}

	other, err := f.store.Restore(testPhrases[0], 1, "")
	if err != nil {
		t.Fatalf("Restore index 1: %v", err)
	}
	if other.PublicKey == acct.PublicKey {
		t.Error("index 1 derived the same key as index 0")
	}
	if f.store.ActiveIndex() != 1 {
		t.Errorf("ActiveIndex = %d, want 1", f.store.ActiveIndex())
	}
}

func TestStore_RestoreInvalid(t *testing.T) {
	f := newFixture(t)
	mustCreate(t, f.store, 1)
	before := f.raw(t)

	_, err := f.store.Restore("abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon", 0, "")
	if !errors.Is(err, wallet.ErrInvalidMnemonic) {
		t.Fatalf("Restore err = %v, want ErrInvalidMnemonic", err)
	}
	if f.store.Len() != 1 {
		t.Errorf("Len = %d, want 1", f.store.Len())
	}
	if !bytes.Equal(before, f.raw(t)) {
		t.Error("persisted state changed after failed Restore")
	}
}

func TestStore_OutOfRangeLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)
	mustCreate(t, f.store, 3)
	f.store.Switch(1)

	before := f.raw(t)
	beforeAccts := f.store.Accounts()

	ops := map[string]func(i int) error{
		"Switch": f.store.Switch,
		"Rename": func(i int) error { return f.store.Rename(i, "x") },
		"Delete": f.store.Delete,
	}
	for name, op := range ops {
		for _, i := range []int{-1, 3, 100} {
			if err := op(i); !errors.Is(err, ErrIndexOutOfRange) {
				t.Errorf("%s(%d) err = %v, want ErrIndexOutOfRange", name, i, err)
			}
		}
	}

	if !bytes.Equal(before, f.raw(t)) {
		t.Error("persisted bytes changed")
	}
	after := f.store.Accounts()
	if len(after) != len(beforeAccts) {
		t.Fatalf("Len changed: %d -> %d", len(beforeAccts), len(after))
	}
	for i := range after {
		if after[i] != beforeAccts[i] {
			t.Errorf("account %d changed", i)
		}
	}
	if f.store.ActiveIndex() != 1 {
		t.Errorf("ActiveIndex = %d, want 1", f.store.ActiveIndex())
	}
}

func TestStore_DeleteAdjustsActive(t *testing.T) {
	tests := []struct {
		name       string
		active     int
		del        int
		wantActive int
	}{
		{"delete before active", 2, 0, 1},
		{"delete active", 2, 2, 1},
		{"delete after active", 1, 2, 1},
		{"delete first while first active", 0, 0, 0},
		{"delete active middle", 1, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			mustCreate(t, f.store, 3)
			if err := f.store.Switch(tt.active); err != nil {
				t.Fatalf("Switch: %v", err)
			}
			if err := f.store.Delete(tt.del); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if got := f.store.ActiveIndex(); got != tt.wantActive {
				t.Errorf("ActiveIndex = %d, want %d", got, tt.wantActive)
			}
			if _, err := f.store.Active(); err != nil {
				t.Errorf("Active: %v", err)
			}
		})
	}
}

func TestStore_RenameKeepsPosition(t *testing.T) {
	f := newFixture(t)
	mustCreate(t, f.store, 3)
	before := f.store.Accounts()

	if err := f.store.Rename(1, "savings"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	after := f.store.Accounts()
	if after[1].Label != "savings" {
		t.Errorf("Label = %q, want savings", after[1].Label)
	}
	if after[1].PublicKey != before[1].PublicKey || after[1].Mnemonic != before[1].Mnemonic {
		t.Error("Rename changed key material")
	}
	if after[1].DisplayName(1) != "savings" || after[0].DisplayName(0) != "Account 1" {
		t.Errorf("DisplayName = %q, %q", after[1].DisplayName(1), after[0].DisplayName(0))
	}
}

func TestStore_PersistRoundTrip(t *testing.T) {
	f := newFixture(t)
	mustCreate(t, f.store, 3)
	f.store.Rename(2, "cold")
	f.store.Switch(1)

	s, err := f.reopen(t)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := f.store.Accounts()
	got := s.Accounts()
	if len(got) != len(want) {
		t.Fatalf("Len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("account %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if s.ActiveIndex() != 1 {
		t.Errorf("ActiveIndex = %d, want 1", s.ActiveIndex())
	}
}

func TestStore_PersistedEnvelope(t *testing.T) {
	f := newFixture(t)
	mustCreate(t, f.store, 1)

	var st struct {
		Version  int             `json:"version"`
		Active   int             `json:"active"`
		Checksum string          `json:"checksum"`
		Accounts json.RawMessage `json:"accounts"`
	}
	if err := json.Unmarshal(f.raw(t), &st); err != nil {
		t.Fatalf("persisted state is not JSON: %v", err)
	}
	if st.Version != StateVersion {
		t.Errorf("version = %d, want %d", st.Version, StateVersion)
	}
	if len(st.Checksum) != 64 {
		t.Errorf("checksum = %q", st.Checksum)
	}
	if !bytes.Contains(st.Accounts, []byte(`"publicKey":"`+abandonPubKey+`"`)) {
		t.Errorf("accounts = %s", st.Accounts)
	}
}

func TestStore_LoadLegacyArray(t *testing.T) {
	f := newFixture(t)
	acct, err := wallet.DeriveAccount(testPhrases[0], 0, "")
	if err != nil {
		t.Fatalf("DeriveAccount: %v", err)
	}
	legacy, _ := json.Marshal([]wallet.Account{acct})
	f.inner.Put([]byte("wallet/"+CollectionKey), legacy)

	s, err := f.reopen(t)
	if err != nil {
		t.Fatalf("Load legacy: %v", err)
	}
	if s.Len() != 1 || s.ActiveIndex() != 0 {
		t.Fatalf("Len/Active = %d/%d, want 1/0", s.Len(), s.ActiveIndex())
	}

	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !bytes.HasPrefix(f.raw(t), []byte(`{"version":1`)) {
		t.Errorf("Save did not upgrade payload: %s", f.raw(t))
	}
}

func TestStore_LoadCorrupt(t *testing.T) {
	good, err := wallet.DeriveAccount(testPhrases[0], 0, "")
	if err != nil {
		t.Fatalf("DeriveAccount: %v", err)
	}
	forged := good
	forged.Index = 3

	envelope := func(accts []wallet.Account, active int) []byte {
		data, err := encodeState(accts, active)
		if err != nil {
			t.Fatalf("encodeState: %v", err)
		}
		return data
	}
	tampered := bytes.Replace(envelope([]wallet.Account{good}, 0), []byte(`"index":0`), []byte(`"index":1`), 1)

	tests := []struct {
		name string
		data []byte
	}{
		{"not json", []byte("{not json")},
		{"empty", []byte("   ")},
		{"unknown version", []byte(`{"version":9,"active":0,"accounts":[]}`)},
		{"checksum mismatch", tampered},
		{"active out of range", envelope([]wallet.Account{good}, 4)},
		{"keys do not re-derive", envelope([]wallet.Account{forged}, 0)},
		{"legacy with bad mnemonic", []byte(`[{"mnemonic":"not words","publicKey":"","privateKey":"","index":0}]`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.inner.Put([]byte("wallet/"+CollectionKey), tt.data)

			s, err := f.reopen(t)
			if !errors.Is(err, ErrCorruptState) {
				t.Fatalf("Load err = %v, want ErrCorruptState", err)
			}
			if s.Len() != 0 {
				t.Errorf("Len = %d, want 0", s.Len())
			}
			if _, err := s.Active(); !errors.Is(err, ErrNoAccounts) {
				t.Errorf("Active err = %v, want ErrNoAccounts", err)
			}
			backup, err := f.inner.Get([]byte("wallet/" + corruptKey))
			if err != nil || !bytes.Equal(backup, tt.data) {
				t.Errorf("backup = %q, %v; want original bytes", backup, err)
			}

			// The store stays usable.
			if _, err := s.Restore(testPhrases[1], 0, ""); err != nil {
				t.Errorf("Restore after corrupt load: %v", err)
			}
		})
	}
}

func TestStore_Disconnect(t *testing.T) {
	f := newFixture(t)
	mustCreate(t, f.store, 2)
	if err := f.store.SetNetwork(types.Testnet); err != nil {
		t.Fatalf("SetNetwork: %v", err)
	}

	if err := f.store.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if f.store.Len() != 0 || f.store.ActiveIndex() != 0 {
		t.Errorf("Len/Active = %d/%d after Disconnect", f.store.Len(), f.store.ActiveIndex())
	}
	if f.raw(t) != nil {
		t.Error("collection key still persisted")
	}

	s, err := f.reopen(t)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("reloaded Len = %d, want 0", s.Len())
	}
	if s.Network() != types.Testnet {
		t.Errorf("Network = %s after Disconnect, want testnet", s.Network())
	}
}

func sealedStore(inner storage.DB, password string) *Store {
	params := storage.EncryptionParams{Memory: 1024, Iterations: 1, Parallelism: 1}
	sealed := storage.NewSealedDB(inner, []byte(password), params)
	s := New(storage.NewPrefixDB(sealed, []byte("wallet/")), storage.NewPrefixDB(sealed, []byte("prefs/")))
	s.SetGenerator(sequence())
	return s
}

func TestStore_SealedMalformedIsCorrupt(t *testing.T) {
	inner := storage.NewMemory()
	inner.Put([]byte("wallet/"+CollectionKey), []byte("garbage"))

	s := sealedStore(inner, "pw")
	if err := s.Load(); !errors.Is(err, ErrCorruptState) {
		t.Fatalf("Load err = %v, want ErrCorruptState", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d after corrupt load, want 0", s.Len())
	}
	if ok, _ := inner.Has([]byte("wallet/" + CollectionKey)); ok {
		t.Error("malformed collection still persisted")
	}

	mustCreate(t, s, 1)
	again := sealedStore(inner, "pw")
	if err := again.Load(); err != nil || again.Len() != 1 {
		t.Errorf("reload after recovery: Len = %d, err = %v", again.Len(), err)
	}
}

func TestStore_SealedWrongPassphraseIsNotCorrupt(t *testing.T) {
	inner := storage.NewMemory()
	mustCreate(t, sealedStore(inner, "right"), 1)

	s := sealedStore(inner, "wrong")
	err := s.Load()
	if !errors.Is(err, storage.ErrDecrypt) || errors.Is(err, ErrCorruptState) {
		t.Fatalf("Load err = %v, want ErrDecrypt and not ErrCorruptState", err)
	}
	if ok, _ := inner.Has([]byte("wallet/" + CollectionKey)); !ok {
		t.Error("collection removed after a wrong passphrase")
	}
}

func TestStore_SealedDisconnectWithUnreadableValues(t *testing.T) {
	inner := storage.NewMemory()
	s := sealedStore(inner, "pw")
	mustCreate(t, s, 2)
	if err := s.SetNetwork(types.Mainnet); err != nil {
		t.Fatalf("SetNetwork: %v", err)
	}
	inner.Put([]byte("wallet/"+corruptKey), []byte("garbage"))
	sealedStore(inner, "other").db.Put([]byte("stray"), []byte("x"))

	if err := s.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	var left []string
	inner.ForEach([]byte("wallet/"), func(key, _ []byte) error {
		left = append(left, string(key))
		return nil
	})
	if len(left) != 0 {
		t.Errorf("wallet keys left after Disconnect: %v", left)
	}

	again := sealedStore(inner, "pw")
	if err := again.Load(); err != nil {
		t.Fatalf("Load after Disconnect: %v", err)
	}
	if again.Len() != 0 || again.Network() != types.Mainnet {
		t.Errorf("after Disconnect: Len = %d, Network = %s", again.Len(), again.Network())
	}
}

func TestStore_Network(t *testing.T) {
	f := newFixture(t)
	if f.store.Network() != types.Devnet {
		t.Errorf("default Network = %s, want devnet", f.store.Network())
	}
	if err := f.store.SetNetwork("localnet"); !errors.Is(err, types.ErrUnknownNetwork) {
		t.Errorf("SetNetwork(localnet) err = %v", err)
	}
	if err := f.store.SetNetwork(types.Mainnet); err != nil {
		t.Fatalf("SetNetwork: %v", err)
	}
	s, _ := f.reopen(t)
	if s.Network() != types.Mainnet {
		t.Errorf("reloaded Network = %s, want mainnet", s.Network())
	}

	f.inner.Put([]byte("prefs/"+NetworkKey), []byte("moonnet"))
	s, _ = f.reopen(t)
	if s.Network() != types.DefaultNetwork {
		t.Errorf("unknown stored network = %s, want default", s.Network())
	}
}

func TestStore_DefaultNetwork(t *testing.T) {
	f := newFixture(t)
	s := New(storage.NewPrefixDB(f.inner, []byte("wallet/")), storage.NewPrefixDB(f.inner, []byte("prefs/")))
	if err := s.SetDefaultNetwork("localnet"); !errors.Is(err, types.ErrUnknownNetwork) {
		t.Errorf("SetDefaultNetwork(localnet) err = %v", err)
	}
	if err := s.SetDefaultNetwork(types.Testnet); err != nil {
		t.Fatalf("SetDefaultNetwork: %v", err)
	}
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Network() != types.Testnet {
		t.Errorf("Network with nothing stored = %s, want testnet", s.Network())
	}

	// A stored preference wins over the fallback.
	if err := f.store.SetNetwork(types.Mainnet); err != nil {
		t.Fatalf("SetNetwork: %v", err)
	}
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Network() != types.Mainnet {
		t.Errorf("Network = %s, want stored mainnet", s.Network())
	}
}

// failingDB rejects writes once armed.
type failingDB struct {
	storage.DB
	fail bool
}

func (d *failingDB) Put(key, value []byte) error {
	if d.fail {
		return errors.New("disk full")
	}
	return d.DB.Put(key, value)
}

func TestStore_FailedWriteIsNotVisible(t *testing.T) {
	db := &failingDB{DB: storage.NewMemory()}
	s := New(db, storage.NewMemory())
	s.SetGenerator(sequence())
	mustCreate(t, s, 2)
	db.fail = true

	if _, err := s.Create(""); err == nil {
		t.Error("Create succeeded with failing storage")
	}
	if err := s.Switch(0); err == nil {
		t.Error("Switch succeeded with failing storage")
	}
	if err := s.Rename(0, "x"); err == nil {
		t.Error("Rename succeeded with failing storage")
	}
	if s.Len() != 2 || s.ActiveIndex() != 1 {
		t.Errorf("Len/Active = %d/%d, want 2/1", s.Len(), s.ActiveIndex())
	}
	if s.Accounts()[0].Label != "" {
		t.Error("label changed despite failed write")
	}
}

func TestStore_ConcurrentMutations(t *testing.T) {
	f := newFixture(t)
	const n = 8

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := f.store.Restore(testPhrases[i%len(testPhrases)], uint32(i), ""); err != nil {
				t.Errorf("Restore: %v", err)
			}
			f.store.Switch(0)
		}(i)
	}
	wg.Wait()

	if f.store.Len() != n {
		t.Fatalf("Len = %d, want %d", f.store.Len(), n)
	}
	s, err := f.reopen(t)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Len() != n {
		t.Errorf("persisted Len = %d, want %d", s.Len(), n)
	}
}

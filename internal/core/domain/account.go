package domain

import "time"

// DigestAlgo identifies the algorithm used to derive an account's password digest.
type DigestAlgo string

const (
	// DigestAlgoLegacy is the original non-cryptographic 32-bit digest. It is
	// kept only so previously stored tables remain verifiable; new accounts
	// should not use it outside of compatibility mode.
	DigestAlgoLegacy DigestAlgo = "legacy"
	// DigestAlgoArgon2id is the salted Argon2id digest used for new accounts.
	DigestAlgoArgon2id DigestAlgo = "argon2id"
)

// Account mirrors the persisted representation in the accounts table.
type Account struct {
	ID              string                `json:"id"`
	Name            string                `json:"name"`
	Email           string                `json:"email"`
	PasswordDigest  string                `json:"passwordDigest"`
	DigestAlgo      DigestAlgo            `json:"digestAlgo"`
	IsVerified      bool                  `json:"isVerified"`
	LatestResult    *VerificationResult   `json:"latestResult,omitempty"`
	History         []VerificationResult  `json:"history"`
	DeviceHistory   []DeviceFingerprint   `json:"deviceHistory"`
	LastKnownDevice *DeviceFingerprint    `json:"lastKnownDevice,omitempty"`
	CreatedAt       time.Time             `json:"createdAt"`
}

// Session is the client-resident projection of the authenticated account.
// It carries every Account field except the credential digest.
type Session struct {
	AccountID       string               `json:"accountId"`
	Name            string               `json:"name"`
	Email           string               `json:"email"`
	IsVerified      bool                 `json:"isVerified"`
	LatestResult    *VerificationResult  `json:"latestResult,omitempty"`
	History         []VerificationResult `json:"history"`
	DeviceHistory   []DeviceFingerprint  `json:"deviceHistory"`
	LastKnownDevice *DeviceFingerprint   `json:"lastKnownDevice,omitempty"`
	CreatedAt       time.Time            `json:"createdAt"`
}

// NewSession builds the sanitized projection of an account.
func NewSession(account Account) Session {
	return Session{
		AccountID:       account.ID,
		Name:            account.Name,
		Email:           account.Email,
		IsVerified:      account.IsVerified,
		LatestResult:    account.LatestResult,
		History:         account.History,
		DeviceHistory:   account.DeviceHistory,
		LastKnownDevice: account.LastKnownDevice,
		CreatedAt:       account.CreatedAt,
	}
}

// DeviceFingerprint is one observed (IP, OS, browser, user-agent) tuple.
// Fingerprints are immutable once collected.
type DeviceFingerprint struct {
	IP        string    `json:"ip"`
	OS        string    `json:"os"`
	Browser   string    `json:"browser"`
	UserAgent string    `json:"userAgent"`
	LastSeen  time.Time `json:"lastSeen"`
}

// MaxDeviceHistory caps the per-account device history; the oldest entries
// are evicted once the cap is reached.
const MaxDeviceHistory = 50

// DeviceDedupWindow is the window within which repeat sightings of the same
// IP do not produce a new device-history entry.
const DeviceDedupWindow = time.Hour

// ApplyVerificationResult records a completed analysis: the result is
// prepended to the history, becomes the latest result, and flips IsVerified
// to true unless the result is high risk. The flag is monotonic; a later
// high-risk result never clears it.
func (a *Account) ApplyVerificationResult(result VerificationResult) {
	a.History = append([]VerificationResult{result}, a.History...)
	a.LatestResult = &result
	a.IsVerified = a.IsVerified || result.RiskLevel != RiskLevelHigh
}

// MergeDeviceFingerprint folds a freshly collected fingerprint into the
// device history. A sighting of the same IP within DeviceDedupWindow of the
// newest entry does not produce a new entry; any other sighting is prepended
// and the history truncated to MaxDeviceHistory. LastKnownDevice always
// reflects the incoming observation.
func (a *Account) MergeDeviceFingerprint(fp DeviceFingerprint) {
	last := (*DeviceFingerprint)(nil)
	if len(a.DeviceHistory) > 0 {
		last = &a.DeviceHistory[0]
	}

	if last == nil || last.IP != fp.IP || fp.LastSeen.Sub(last.LastSeen) > DeviceDedupWindow {
		a.DeviceHistory = append([]DeviceFingerprint{fp}, a.DeviceHistory...)
		if len(a.DeviceHistory) > MaxDeviceHistory {
			a.DeviceHistory = a.DeviceHistory[:MaxDeviceHistory]
		}
	}

	a.LastKnownDevice = &fp
}

package scan

import (
	"sync"
	"time"

	"github.com/MeKo-Tech/qrscan/internal/events"
)

// Status messages shown to the user.
const (
	DefaultMessage = `Click "Start" to scan QR codes or barcodes with your webcam.` +
		` You can also paste images from your clipboard using Ctrl + V or drop local files.`
	LoadingMessage   = "Loading..."
	PreparingMessage = "Preparing..."
	NoClipboardImage = "No image found in the clipboard"
)

// DefaultRevert is how long a transient message stays before the default
// prompt returns.
const DefaultRevert = 10 * time.Second

// Notice is one status line change.
type Notice struct {
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier holds the current status line.
type Notifier struct {
	mu      sync.Mutex
	message string
	revert  time.Duration
	timer   *time.Timer
	bus     *events.Bus[Notice]
}

// NewNotifier starts with the default prompt. A non-positive revert disables
// automatic reverting.
func NewNotifier(revert time.Duration) *Notifier {
	return &Notifier{message: DefaultMessage, revert: revert, bus: events.New[Notice]()}
}

// Notify shows msg. When revert is set, the default prompt comes back after
// the configured delay unless another message replaces it first.
func (n *Notifier) Notify(msg string, revert bool) {
	n.mu.Lock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.message = msg
	if revert && n.revert > 0 {
		var t *time.Timer
		t = time.AfterFunc(n.revert, func() {
			n.mu.Lock()
			if n.timer != t {
				n.mu.Unlock()
				return
			}
			n.timer = nil
			n.message = DefaultMessage
			n.mu.Unlock()
			n.bus.Emit(Notice{Message: DefaultMessage, At: time.Now()})
		})
		n.timer = t
	}
	n.mu.Unlock()

	n.bus.Emit(Notice{Message: msg, At: time.Now()})
}

// Reset shows the default prompt.
func (n *Notifier) Reset() { n.Notify(DefaultMessage, false) }

// Message returns the current status line.
func (n *Notifier) Message() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.message
}

// Subscribe registers fn for status changes.
func (n *Notifier) Subscribe(fn func(Notice)) func() { return n.bus.Subscribe(fn) }

// Stop cancels a pending revert.
func (n *Notifier) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}

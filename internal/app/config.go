package app

import "net/http"

// Config holds runtime wiring options for building the app.
type Config struct {
	Home         string       // config directory, e.g. $HOME/.mizu
	Address      string       // this node's address, rooting the local store
	Passphrase   string       // unlocks the identity and encrypted session blobs
	PostalBoxURL string       // postal box base URL, e.g. http://127.0.0.1:8080
	HTTPClient   *http.Client // optional; defaults to http.DefaultClient
}

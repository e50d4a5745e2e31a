package ports

// MailSource defines a long-running source of incoming email
type MailSource interface {
	// Start starts accepting email
	Start() error

	// Stop stops accepting email and releases listeners
	Stop() error
}

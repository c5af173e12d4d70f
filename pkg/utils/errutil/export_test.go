package errutil

// DisableSentry stops forwarding errors to Sentry
func DisableSentry() {
	sentryEnabled.Store(false)
}

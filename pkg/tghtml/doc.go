// Package tghtml provides small helpers for building Telegram HTML messages:
//   - An H type marking already-escaped HTML
//   - Esc/B/I/Code/Link builders that escape user content
//   - Rune-aware truncation with an ellipsis
//
// Telegram's ParseMode="HTML" rejects unescaped '<' and '>' in free text, so
// every piece of user-supplied content must pass through Esc (or a builder
// that calls it) before it reaches the wire.
package tghtml

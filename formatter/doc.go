// Package formatter defines how log entries are serialized into bytes.
//
// It exposes the Formatter interface, which returns a []byte, and the
// optional WriterFormatter and BufferFormatter interfaces, which write to
// an io.Writer or a caller-owned buffer. Handlers check for them at
// construction time and prefer them when available.
//
// JSONLayout is the structured formatter. Depending on its Scope it either
// writes a whole record per line (ScopeRecord) or serializes only the
// message object and renders it through a conversion Pattern
// (ScopeMessage), so that JSON payloads can sit inside a conventional log
// line:
//
//	2024-01-01 10:00:00,000 [7] DEBUG app - {"info":"..."}
//
// Records are projected from entries by Project in a Full or Compact Style.
// Serialization is governed by a Policy: a FieldFilter consulted for every
// struct field, TypeConverters tried in order (the last one always formats
// time.Time with the configured layout), and a LoopHandling mode for
// self-referencing values. A message that serializes to an empty object is
// replaced by its rendered text, so output is never a bare "{}".
//
// Filters and converters can be named in configuration by locator and are
// resolved through a Registry. Locators that cannot be resolved are logged
// and skipped; the layout is still built from the rest.
//
// TextFormatter renders entries through a Pattern only. Both formatters use
// a pooled bytes.Buffer internally; buffers larger than 64 KiB are not
// returned to the pool.
package formatter

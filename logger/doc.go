// Package logger is the public API of contextlog. Most users only need to
// import this package.
//
// A Logger is immutable after construction. Its name, fields, level and
// handler are set once via the Builder and never modified, so Logger is
// safe for concurrent use without any locking on the read path.
//
// Messages are of type any. Text is logged as is; any other value is
// carried on the entry unchanged so a structured formatter such as
// formatter.JSONLayout can serialize it:
//
//	log.Info(order)
//	log.Info("order placed", logger.Int("items", 3))
//
// The first error field of an entry (see Err) is also attached as the
// entry's exception, which formatters render on its own line.
//
// The package initializes a default Logger (InfoLevel, text format to
// stdout) in init(). The package-level functions Info, Error, Debugf,
// etc. delegate to this default instance:
//
//	logger.Info("ready", logger.Int("port", 8080))
//
// For custom configuration, use the Builder:
//
//	log := logger.NewBuilder().
//	    WithHandler(myHandler).
//	    WithLevel(logger.DebugLevel).
//	    WithName("api").
//	    WithCaller(true).
//	    Build()
//
// Child loggers are created with With, which adds default fields, and
// Named, which extends the logger name with a dot separated segment:
//
//	reqLog := log.Named("orders").With(logger.String("request_id", id))
//
// Level checks happen before any allocation, so filtered-out
// messages cost only a single integer comparison.
package logger

package errors

// Error codes for the dispatcher contracts. Keep stable; used across adapters and the dispatcher.
const (
	ErrCodeHandlerRequired       = "dispatcher.handler_required"
	ErrCodeDispatcherClosed      = "dispatcher.closed"
	ErrCodeSubscriberFault       = "dispatcher.subscriber_fault"
	ErrCodeSubscriberPanic       = "dispatcher.subscriber_panic"
	ErrCodeReportFailed          = "dispatcher.report_failed"
	ErrCodeSerializationFailed   = "dispatcher.serialization_failed"
	ErrCodeReporterNotConfigured = "dispatcher.reporter_not_configured"
)

// Code returns an error value that carries only a code string.
// It implements error by returning the code string in Error().
func Code(code string) error { return codedError(code) }

type codedError string

func (e codedError) Error() string { return string(e) }

var (
	ErrHandlerRequired       = Code(ErrCodeHandlerRequired)
	ErrDispatcherClosed      = Code(ErrCodeDispatcherClosed)
	ErrSubscriberFault       = Code(ErrCodeSubscriberFault)
	ErrSubscriberPanic       = Code(ErrCodeSubscriberPanic)
	ErrReportFailed          = Code(ErrCodeReportFailed)
	ErrSerializationFailed   = Code(ErrCodeSerializationFailed)
	ErrReporterNotConfigured = Code(ErrCodeReporterNotConfigured)
)

package iid

import "context"

// Outcome is the terminal result of one exchange. Exactly one of Token or
// Err is set.
type Outcome struct {
	Token string
	Err   error
}

// Executor schedules a unit of work off the caller's goroutine. Submit
// returns false when the unit was rejected, e.g. because a queue is full;
// accepted units must run exactly once.
type Executor interface {
	SubmitFunc(name string, fn func(ctx context.Context) error) bool
}

// AsyncOption configures a single ExchangeAsync call.
type AsyncOption func(*asyncOptions)

type asyncOptions struct {
	executor Executor
}

// WithExecutor redirects callback delivery to the given executor instead of
// the exchange goroutine.
func WithExecutor(exec Executor) AsyncOption {
	return func(o *asyncOptions) {
		o.executor = exec
	}
}

// ExchangeAsync performs the exchange without blocking the caller and
// delivers the outcome to callback exactly once, whether the exchange
// succeeds or fails. Without options the callback runs on the exchange
// goroutine; WithExecutor hands it to an executor instead. The callback must
// not be nil.
func (c *Client) ExchangeAsync(ctx context.Context, deviceToken string, callback func(Outcome), opts ...AsyncOption) {
	if callback == nil {
		panic("iid: ExchangeAsync requires a non-nil callback")
	}

	var options asyncOptions
	for _, opt := range opts {
		opt(&options)
	}

	go func() {
		token, err := c.Exchange(ctx, deviceToken)
		deliver(Outcome{Token: token, Err: err}, callback, options.executor)
	}()
}

// deliver hands the outcome to the callback exactly once. A rejected
// executor submission falls back to running the callback inline so the
// outcome is never dropped.
func deliver(outcome Outcome, callback func(Outcome), exec Executor) {
	if exec == nil {
		callback(outcome)
		return
	}

	accepted := exec.SubmitFunc("token-exchange-callback", func(ctx context.Context) error {
		callback(outcome)
		return nil
	})
	if !accepted {
		callback(outcome)
	}
}

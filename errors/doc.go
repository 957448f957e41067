/*
Package errors provides semantic error types for the modelsync library.

The package defines common error scenarios with specific types that can be
checked using the standard errors.Is() function or the provided helper functions.

Common Errors:

	var (
	    ErrNotFound        = errors.New("document not found")
	    ErrAlreadyExists   = errors.New("document already exists")
	    ErrInvalidInput    = errors.New("invalid input")
	    ErrConditionFailed = errors.New("condition check failed")
	    ErrNoIndex         = errors.New("no index field defined for type")
	    ErrNoIndexValue    = errors.New("no index field has a value")
	    ErrDecode          = errors.New("document decode failed")
	    ErrSchedulerClosed = errors.New("scheduler closed")
	)

Usage:

	// Check error type
	doc, err := users.FindOne(ctx, query.Eq("id", 42))
	if err != nil {
	    if errors.IsNotFound(err) {
	        return nil, fmt.Errorf("user %d does not exist", 42)
	    }
	    return nil, err
	}

	// Partial decodes keep the good fields and report the bad ones
	if err := users.Load(ctx, &u); errors.IsDecodeError(err) {
	    var de *errors.DecodeError
	    stderrors.As(err, &de)
	    for _, fe := range de.Fields {
	        log.Printf("field %s: %v", fe.Path, fe.Cause)
	    }
	}

The error types implement the error interface and support wrapping,
making them compatible with Go's standard error handling patterns.
*/
package errors

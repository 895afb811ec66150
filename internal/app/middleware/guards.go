package middleware

import "context"

// Validator checks struct tags on commands and queries.
type Validator interface {
	Validate(ctx context.Context, message any) error
}

// Authorizer rejects messages the caller may not send.
type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

func Validation(v Validator) CommandMiddleware {
	return OnCommands(guard("validator", v, validate(v)))
}

func QueryValidation(v Validator) QueryMiddleware {
	return OnQueries(guard("validator", v, validate(v)))
}

func Authorization(a Authorizer) CommandMiddleware {
	return OnCommands(guard("authorizer", a, authorize(a)))
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	return OnQueries(guard("authorizer", a, authorize(a)))
}

func validate(v Validator) func(context.Context, any) error {
	if v == nil {
		return nil
	}
	return v.Validate
}

func authorize(a Authorizer) func(context.Context, any) error {
	if a == nil {
		return nil
	}
	return a.Authorize
}

// guard stops the pipeline when check fails. The handler never sees a rejected message.
func guard(name string, dep any, check func(context.Context, any) error) Step {
	if dep == nil || check == nil {
		panic("middleware: " + name + " required")
	}
	return func(ctx context.Context, _ string, message any, next Next) (any, error) {
		if err := check(ctx, message); err != nil {
			return nil, err
		}
		return next(ctx)
	}
}

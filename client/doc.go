// Package client builds and executes HTTP calls against JSON REST
// endpoints through a chain of restricted steps.
//
// Each step exposes only what is legal at that point of construction:
//
//	Step1  verb          Get, Post, Put, Delete, Patch, Head, Options, Verb
//	Step2  body          NoBody, Body, BodyJSON
//	Step3  configuration Header, QueryParam, Accept, FollowRedirects, ...
//	Step4  typed result  via Expecting[T]
//	Step5  success callback
//	Step6  failure callback, submits the call
//
// Every transition returns a new step wrapping a new [Request]; no step
// mutates a request shared with another chain. Construction errors are
// carried forward and returned by the terminal At, before any network
// interaction.
//
// # Synchronous calls
//
//	c, err := client.Build()
//
//	resp, err := c.Go().Get().At(ctx, "https://example.com/users/1")
//
//	user, err := client.Expecting[User](c.Go().Get()).At(ctx, "https://example.com/users/1")
//
// # Asynchronous calls
//
// Asynchronous calls run on the executor set with [WithExecutor]. Exactly
// one of the two callbacks is invoked; an error or panic from the success
// callback is delivered to the failure callback as a [*CallbackError].
//
//	err := client.Expecting[User](c.Go().Get()).
//		OnSuccess(func(u User) error { ... }).
//		OnFailure(func(err error) { ... }).
//		At(context.WithoutCancel(ctx), "https://example.com/users/1")
//
// # Errors
//
// Failures are reported as [*ValidationError], [*MappingError],
// [*TransportError], [*UnexpectedStatusError], [*JSONError] and
// [*CallbackError]. Each wraps a sentinel error for use with [errors.Is].
package client

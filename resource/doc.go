// Package resource provides shared resource budgeting for the media cache.
//
// The Controller tracks three budgets:
//
//   - Memory: an optional hard cap on fast-tier payload bytes, so the host
//     application can bound the cache next to its other memory consumers.
//   - Background workers: a global ceiling on concurrent prefetch fetches,
//     applied on top of the preloader's per-band concurrency limits.
//   - IO: a token-bucket limit on background download bandwidth, so cache
//     warming never starves foreground media loads.
//
// All methods are safe on a nil *Controller, which enforces nothing. This
// keeps the controller strictly optional for embedders.
package resource

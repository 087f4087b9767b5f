// Package services defines the remote capability interfaces used by the syncers and implements them for iFormBuilder.
//
// # Capability Interfaces
//
// [PageClient] and [OptionListClient] cover exactly the calls the form and option list
// pipelines make. [Platform] combines them with a call counter so every run can report
// how many API calls it consumed.
//
// # iFormBuilder Implementation
//
// [IFBClient] talks to API v60 under /exzact/api/v60/profiles/<profile_id>.
//
// Authentication uses the JWT bearer grant: a short-lived HS256 assertion signed with the
// client secret is exchanged for an access token. The exchange is wrapped in an
// [oauth2.TokenSource] so the [oauth2] transport attaches and renews the token.
//
// Listings are paginated with limit/offset (100 for pages, elements and option lists,
// 1000 for records and options) and read until a short page.
//
// Requests are paced with a [rate.Limiter] and issued one at a time.
//
// # Error Handling
//
//   - [shared.ErrAuthFailed] : token exchange rejected or unreachable
//   - [shared.ErrAPIRequest] : non-2xx response or undecodable body, with method, path, status and a body excerpt
//
// # Value Coercion
//
// Responses are decoded with json.Decoder.UseNumber and every value passes through [Stringify],
// so remote cells compare as strings against CSV cells.
package services

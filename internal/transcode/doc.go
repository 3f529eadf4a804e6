// Package transcode runs the per-asset pipeline: encode every configured
// profile, attach each rendition, tag the category from the thumbnail, then
// delete the original and persist the finished asset.
//
// The job moves through Pending, Encoding (once per profile), Tagging,
// Finalizing and Done. An encode or attach failure moves it to Failed and
// leaves already attached renditions in place; the asset is marked partial
// when at least one rendition exists and failed otherwise. Errors never
// escape Run: they are reported on the Result for the worker to record.
//
// Each run computes an idempotency token from the asset id and the sha256 of
// the original. A redelivered job skips profiles whose slot is already
// populated under the same token, and a job for an asset that is already
// done is a no-op.
package transcode

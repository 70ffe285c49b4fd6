// Short-lived cache of platform lookups (eg, member permission bitmasks fetched over REST), with a fixed TTL and purging.
//
// Includes an interface and implementations using redis and in-process memory. The redis implementation lets a restarted daemon skip re-fetching warm entries.
package cachestore

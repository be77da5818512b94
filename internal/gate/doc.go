// Package gate provides the counting semaphore that bounds how many GitHub
// lookups may be in flight at once. A single Gate is shared by every workflow
// document of a repository, so the number of outstanding lookups stays capped
// no matter how many documents or references are being processed.
package gate

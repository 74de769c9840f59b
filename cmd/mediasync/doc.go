// Command mediasync is the operator CLI for the media catalog: project
// lifecycle, reconciliation, source management, bucket discovery, and staged
// library scans.
package main

// Package domain holds the relief funding entities and the pure state
// transitions that the registry, approval, intake, issuer and reconcile
// services apply through the ledger store.
//
// Nothing in this package performs I/O. Aggregates such as confirmed funding
// and remaining funding are always derived from the child records passed in.
package domain

// Package drive exposes file and folder operations of the access layer.
//
// The document store lives behind the backends; folder creation and
// document generation are backend-owned side effects that this service only
// triggers. Listing degrades to an empty set when no backend is reachable;
// generation and deletion do not degrade.
package drive

// Package access holds the authorization rules for documents. There is no
// role hierarchy and no admin override: mutation is owner-only, reads are
// public.
package access

import "coursepdf/internal/model"

// CanMutate reports whether requesterID may update or soft-delete the
// document. Only the uploading owner qualifies; anonymous callers (empty id)
// never do.
func CanMutate(doc *model.Document, requesterID string) bool {
	return requesterID != "" && requesterID == doc.OwnerID
}

// CanRead reports whether the document may be served to requesterID, which
// may be empty for anonymous callers. Active documents are public; inactive
// ones are invisible to everyone, owner included.
func CanRead(doc *model.Document, requesterID string) bool {
	return doc.Active
}

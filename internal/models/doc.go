// Package models defines the core domain models for Splitcheck.
//
// # Models
//
//   - Session: one bill-splitting event, joined through a short code
//   - Participant: one person in a session; exactly one is the owner
//   - Item: one billed line on the receipt
//   - Assignment: an (item, participant) link carrying a share fraction
//
// # Design Principles
//
// 1. **Rows, not graphs**: models mirror table rows and reference each other by ID
// 2. **Derived fields are written, not trusted**: Item.TotalPrice and Item.IsShared
//    are recomputed by the store on every write
// 3. **JSON tags match column names** so the same structs serve as realtime row images
//
// # Ownership
//
// A Session owns its Participants, Items and Assignments. Deleting a session
// cascades to all of them. An Assignment's participant reference is a weak link
// used for lookup only.
package models

// Package compositor builds cover spreads. It copies one page of a
// template document into a new output document and draws two pages of a
// source document onto it as Form XObjects, the back cover in the left
// slot and the front cover in the right.
//
// Each call to Compose works on its own documents and leaves its inputs
// untouched, so a Compositor can serve concurrent requests.
package compositor

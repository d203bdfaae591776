// Package annotation holds the redaction annotation model and the per-page
// annotation store.
//
// Regions are expressed as percentages of the page width and height with a
// top-left origin, which keeps them independent of the resolution a page is
// displayed or rendered at. The store is an arena keyed by page id: pages
// carry only their id, and every annotation is owned by exactly one page.
//
// Annotations are immutable once added. The only mutation is removing a
// whole annotation, either by id or with UndoLast, which pops the most
// recently added annotation of a page.
package annotation

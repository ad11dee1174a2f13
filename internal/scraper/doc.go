// Package scraper fetches the computer science event calendar and turns its
// HTML into events.
//
// A run fetches the calendar index page, collects event stubs from the
// "Today's CS Events" list, the "CS Events" list and the month calendar table,
// then visits every stub's detail page to fill in date, time, location,
// presenter, abstract and the other long-text sections. All extraction is
// best-effort: a field that cannot be found is left empty and a detail page
// that cannot be fetched leaves its stub untouched.
package scraper

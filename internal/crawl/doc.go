// Package crawl implements the fetch/extract/crawl pipeline: bounded HTTP
// fetching, readable-text and link extraction, JS-required detection with a
// headless-browser escape hatch, and concurrency-bounded multi-page scraping.
package crawl

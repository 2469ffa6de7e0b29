// Package storage abstracts the object store recordings are shared through.
//
// The ObjectStore interface carries exactly the operations the upload
// coordinator needs: write an object with explicit content-type and cache
// headers, delete an object treating "not found" as success, flip an object
// to public-read, and derive the public URL viewers fetch. The production
// implementation talks to S3 (or any S3-compatible endpoint) through the AWS
// SDK; tests substitute in-memory fakes.
package storage

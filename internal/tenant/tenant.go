// Package tenant maps an (owner, bot) pair to the vector-store collection
// that holds that bot's knowledge base. The mapping is the isolation
// boundary between tenants: every ingested chunk lives in exactly one
// collection, and two distinct pairs must never share one.
package tenant

import "strings"

// collectionPrefix namespaces all collections created by this system so
// they are recognisable next to unrelated collections on a shared cluster.
const collectionPrefix = "chatbot"

// delimiter separates the owner and bot segments in a collection name.
const delimiter = "_"

// CollectionName returns the collection name for the given owner and bot,
// of the form "chatbot_<owner>_<bot>". The mapping is deterministic and
// injective: equal pairs always produce equal names, and any difference in
// either identifier produces a different name. Identifiers containing the
// delimiter (or a literal "%") are escaped so they cannot collide with a
// differently-split pair.
func CollectionName(ownerID, botID string) string {
	return collectionPrefix + delimiter + escape(ownerID) + delimiter + escape(botID)
}

// escape percent-encodes the delimiter and the escape character itself.
// "%" must be escaped first so escaped delimiters cannot be re-interpreted.
func escape(id string) string {
	id = strings.ReplaceAll(id, "%", "%25")
	return strings.ReplaceAll(id, delimiter, "%5F")
}

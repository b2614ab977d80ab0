// Package capability answers "may this actor perform this privileged
// operation" for the storage engine.
//
// The engine never evaluates roles itself; it asks a Checker for a
// yes/no before compliance operations, re-labeling and key rotation.
// Two checkers are provided: StaticChecker over a fixed grant table,
// and JWTChecker which reads capabilities out of signed tokens.
package capability

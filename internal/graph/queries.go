package graph

// Cypher query constants for the usage graph.
const (
	CreateConstraintProgram     = `CREATE CONSTRAINT program_name IF NOT EXISTS FOR (p:Program) REQUIRE p.name IS UNIQUE`
	CreateConstraintLegacyTable = `CREATE CONSTRAINT legacy_table_name IF NOT EXISTS FOR (t:LegacyTable) REQUIRE t.name IS UNIQUE`
	CreateConstraintTable       = `CREATE CONSTRAINT table_name IF NOT EXISTS FOR (t:Table) REQUIRE t.name IS UNIQUE`

	// UpsertReplacement links a legacy table to its replacement.
	UpsertReplacement = `
UNWIND $tables AS row
MERGE (legacy:LegacyTable {name: row.name})
WITH legacy, row
WHERE row.replacement <> ''
MERGE (repl:Table {name: row.replacement})
MERGE (legacy)-[:REPLACED_BY]->(repl)
`

	// UpsertUsage records that a program include uses a legacy table. The
	// relationship is keyed by include so one program can carry several.
	UpsertUsage = `
UNWIND $usages AS u
MERGE (p:Program {name: u.program})
MERGE (t:LegacyTable {name: u.table})
MERGE (p)-[r:USES {include: u.include}]->(t)
SET r.occurrences = u.occurrences,
    r.writes = u.writes,
    r.severity = u.severity,
    r.reportId = u.reportId,
    r.updatedAt = datetime()
`

	// ProgramsUsingTable lists every program include that uses a legacy table.
	ProgramsUsingTable = `
MATCH (p:Program)-[r:USES]->(t:LegacyTable {name: $table})
OPTIONAL MATCH (t)-[:REPLACED_BY]->(repl:Table)
RETURN p.name AS program, r.include AS include, r.occurrences AS occurrences,
       r.writes AS writes, r.severity AS severity, r.reportId AS reportId,
       repl.name AS replacement
ORDER BY program, include
`
)

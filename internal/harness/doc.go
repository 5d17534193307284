// Package harness runs template fixtures through the compile driver.
//
// A fixture is a YAML file holding a template body, the variables to bind
// and the expected outcome. The harness builds a fresh session per
// fixture, binds every variable through the same entry points a host
// would use, compiles once and checks the expectations.
//
// # Fixture Format
//
//	name: invoice_json
//	description: "What this fixture validates"
//	template: |
//	  total: price * 2
//	format: json          # json | yaml | cue | text
//	expression: ""        # optional sub-value to render
//	variables:
//	  - name: price
//	    value: 21         # direct host value
//	  - name: meta
//	    json: '{"id": "INV-1"}'
//	  - name: rows
//	    csv: |
//	      name,qty
//	      Widget,2
//	    headers: true
//	    delimiter: ","
//	  - name: account
//	    yaml: |
//	      name: acme
//	expect:
//	  error: COMPILE_FAILED      # expected error kind; omit for success
//	  contains: ["substring"]    # searched in the output or error text
//	  output: |                  # exact artifact bytes
//	    ...
//
// # Deterministic Testing
//
// Every run records into a fresh in-memory journal with sequential run ids
// and discards driver logs, so identical fixtures give identical results
// and golden files compare byte for byte.
//
// # Usage
//
//	f, err := harness.LoadFixture("testdata/fixtures/invoice_json.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(f)
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package seed bootstraps a deployment from a YAML file.

	owners:
	  - uid: north-mess
	    type: mess
	    name: North Mess
	    open: true
	    menu:
	      Mo:
	        lunch:
	          price: "60"
	          items:
	            - {name: Dal, price: "20"}
	schedule:
	  mess: ["11:00-15:00", {start: "19:00", end: "23:00"}]
	suggestions: [Dal, Paneer]

Apply only fills in what is missing, so the file can be passed on every
start.
*/
package seed

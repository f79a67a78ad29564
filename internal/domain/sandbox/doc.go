/*
Package sandbox renders composed preview pages in an isolated JavaScript
runtime.

# Overview

Each Render call is a full reload: the page is parsed into a lightweight DOM,
a fresh goja VM is created, and every inline classic script runs in document
order. Nothing carries over between renders.

# Host messaging

Scripts talk to the host the way an iframe talks to its parent page:

	parent.postMessage({ type: 'log', message: args }, '*')

Every posted value becomes a Message delivered to the registered listeners,
synchronously and in emission order. Listen returns a cancel function that
deregisters the listener.

# Limits

  - Execution timeout per render (interrupts runaway scripts)
  - require, process, module and exports are removed
  - setInterval is inert; setTimeout callbacks run once after all scripts,
    ordered by delay
  - The DOM proxy supports a subset: getElementById, querySelector(All),
    getElementsByClassName, getElementsByTagName, createElement, appendChild,
    textContent/innerText/innerHTML (as text), get/setAttribute

A script that throws is recorded in Result.Errors and the next script still
runs, as it would in a browser.
*/
package sandbox

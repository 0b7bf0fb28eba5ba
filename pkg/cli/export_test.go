package cli

var PrintAnnotation = printAnnotation

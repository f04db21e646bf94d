package publish

const truncateTable = "TRUNCATE TABLE %s;"

const copyTableFromCSV = "COPY %s (%s) FROM STDIN WITH (FORMAT csv, HEADER true)"

/*
Package bigtab builds bigTab containers: a delimited text table stored as
independently compressed blocks of raw rows, plus a B+ tree index which maps
the value of one field to the block and in-block offset of its row.

Data Structure Documentation

Container

A container starts with a fixed header and the NUL-terminated autoSql
schema, followed by the data blocks, the index list and the index.

    Container layout:
    +--------+-------------+---------+-----+---------+------------+-------+
    | header | schema text | block 1 | ... | block n | index list | index |
    +--------+-------------+---------+-----+---------+------------+-------+

    Header (36 bytes):
    +------------------+----------------+-------------------------+-------------------------+
    | signature (4 b.) | version (2 b.) | block capacity (4 b.)   | schema offset (8 b.)    |
    +------------------+----------------+-------------------------+-------------------------+
    | index count (2 b.) | index list offset (8 b.) | reserved (8 b., low byte: codec)        |
    +--------------------+--------------------------+-----------------------------------------+

The block capacity is the maximum uncompressed size of a block, zero if
blocks are stored uncompressed. Schema offset and index list offset are
written as zero first and patched once the container is complete.

Block

A block is the compressed concatenation of complete rows, each one followed
by a newline. Rows are never split across blocks.

    Block (decompressed):
    +-------+----+-------+----+-----+-------+----+
    | row 1 | \n | row 2 | \n | ... | row n | \n |
    +-------+----+-------+----+-----+-------+----+

Index list

A single entry describes the index over the key field.

    Index list entry (24 bytes):
    +-----------+-----------------+--------------------+-----------------+---------------+-----------------+---------------+
    | kind (2b.)| field count (2b)| index offset (8 b.)| reserved (4 b.) | field id (2b.)| reserved (2 b.) | padding (4 b.)|
    +-----------+-----------------+--------------------+-----------------+---------------+-----------------+---------------+

Index

The index is a B+ tree (see package bpt) with keys zero-padded to the
longest key and 16-byte values:

    +---------------------+---------------------+----------------------+
    | block offset (8 b.) | block length (4 b.) | record offset (4 b.) |
    +---------------------+---------------------+----------------------+

All integers are little-endian.
*/
package bigtab
